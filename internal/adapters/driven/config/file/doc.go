// Package file keeps user-editable state under ~/.faersight.
//
// Adapters:
//   - ConfigStore: config.toml, read through an in-memory store
//   - PromptStore: narration prompts, seeded from built-in defaults
package file
