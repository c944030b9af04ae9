// Package adapt is a feedback-driven strategy-optimization engine: given an
// artifact produced from a specification and a numeric quality score for it,
// the engine iteratively selects and applies adaptation strategies to improve
// the score, learns from the outcome of every attempt, and synthesizes brand
// new strategies once the existing ones stop helping.
//
// Key Components:
//
//   - Core: Fundamental types and collaborator contracts: Context,
//     StrategyDefinition, StrategyOutcome, the LLM generation collaborator
//     and the Scorer.
//
//   - Registry: Named strategy definitions, both the built-in set registered
//     at startup and strategies discovered at runtime.
//
//   - Memory: The append-only, persisted outcome log with derived statistics
//     and composite-scored strategy recommendations. File and SQLite backed
//     stores are provided.
//
//   - Trainer: The improvement loop. Each run selects strategies from memory
//     recommendations (falling back to the registry), applies their
//     transforms, scores the results, records outcomes and watches for
//     plateaus.
//
//   - Discovery: Mines the memory for patterns and failure modes and asks
//     the generation collaborator to propose a new strategy. Discovered
//     strategies are declarative rule specs interpreted by a fixed
//     evaluator; no generated code is ever executed.
//
// Example usage:
//
//	reg := registry.New()
//	registry.RegisterBuiltin(reg, llm)
//
//	mem, err := memory.New(ctx, memory.NewFileStore("outcomes.json"), cfg.Memory)
//	if err != nil { ... }
//
//	engine, err := discovery.NewEngine(ctx, mem, reg, llm,
//		discovery.NewFileRecordStore("discovered.json"), cfg.Discovery)
//	if err != nil { ... }
//
//	t := trainer.New(reg, mem, scorer, cfg.Trainer, trainer.WithDiscovery(engine))
//	result, err := t.ImproveArtifact(ctx, artifact, spec, initialScore, tc)
package adapt
