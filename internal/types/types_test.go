package types

import (
	"testing"
	"time"
)

func TestTopicProfileValidate(t *testing.T) {
	valid := TopicProfile{
		Name:       "ielts",
		Keywords:   []string{"ielts", "ielts group"},
		BoostTerms: []string{"ielts"},
		Threshold:  0.7,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid profile failed validation: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*TopicProfile)
		wantErr bool
	}{
		{"missing name", func(p *TopicProfile) { p.Name = " " }, true},
		{"no keywords", func(p *TopicProfile) { p.Keywords = nil }, true},
		{"no boost terms", func(p *TopicProfile) { p.BoostTerms = nil }, true},
		{"threshold too high", func(p *TopicProfile) { p.Threshold = 1.5 }, true},
		{"threshold negative", func(p *TopicProfile) { p.Threshold = -0.1 }, true},
		{"threshold zero is allowed", func(p *TopicProfile) { p.Threshold = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJoinStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to JoinStatus
		want     bool
	}{
		{StatusDiscovered, StatusJoinPending, true},
		{StatusDiscovered, StatusSkipped, true},
		{StatusJoinPending, StatusJoined, true},
		{StatusJoinPending, StatusJoinFailed, true},
		{StatusJoinFailed, StatusJoinPending, true}, // retry path
		{StatusJoined, StatusLeft, true},
		{StatusJoined, StatusRemoved, true},

		// No downgrades
		{StatusJoined, StatusDiscovered, false},
		{StatusJoined, StatusSkipped, false},
		{StatusJoined, StatusJoinPending, false},
		{StatusSkipped, StatusJoinPending, false},
		{StatusLeft, StatusJoined, false},
		{StatusRemoved, StatusDiscovered, false},

		// Idempotent re-record
		{StatusJoined, StatusJoined, true},
		{StatusSkipped, StatusSkipped, true},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestGroupValidate(t *testing.T) {
	g := Group{
		RemoteID:    555,
		Title:       "IELTS Uzbekistan",
		Confidence:  0.92,
		JoinStatus:  StatusDiscovered,
		FirstSeen:   time.Now(),
		LastChecked: time.Now(),
	}
	if err := g.Validate(); err != nil {
		t.Errorf("valid group failed validation: %v", err)
	}

	bad := g
	bad.RemoteID = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing remote_id")
	}

	bad = g
	bad.Confidence = 1.2
	if err := bad.Validate(); err == nil {
		t.Error("expected error for out-of-range confidence")
	}

	bad = g
	bad.JoinStatus = "banned"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown join status")
	}
}
