// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - CaseSource: Loads the adverse-event dataset once per process
//   - ConfigStore: Application configuration
//   - EmbeddingStore: Durable text to vector cache (SQLite, Redis or memory)
//   - ProgressStore: Per-session progress of long-running requests
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, literature retrieval is disabled.
//   - LLMService: Language model operations. Without it, narrative insights are disabled.
//   - LiteratureSearch: Article search. Without it, the knowledge base stays empty.
//   - ReportExporter: Writes analysis reports to files.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
