package config

import (
	"fmt"
	"os"
)

const exampleYAML = `# telescout configuration
db_path: telescout.db
bridge_addr: http://127.0.0.1:8787

topics:
  - name: ielts
    keywords: [ielts, ielts preparation, ingliz tili]
    boost_terms: [band, speaking, listening]
    disqualifiers: [casino, scam, crypto]
    threshold: 0.6
    language: uz

modifiers: [uzbekistan, tashkent, guruh, chat]

rates:
  search_per_minute: 30
  joins_per_hour: 8
  info_per_minute: 60
  long_wait_seconds: 120

ai:
  enabled: false
  model: claude-3-5-haiku-latest
  count: 20
  every_n_rounds: 2

engine:
  search_limit: 50
  join_borderline: false
  require_language_match: false
  max_retries: 3

runner:
  interval_minutes: 60
  max_rounds: 0
`

// WriteExample writes a starter config file. It refuses to overwrite
// an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.WriteFile(path, []byte(exampleYAML), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
