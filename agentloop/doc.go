// Package agentloop drives a language model through a bounded, multi-turn
// tool-use protocol to audit one source tree for defects.
//
// The loop talks to a backend through the unifiedllm package's low-level
// Client.Complete and implements its own turn loop: each iteration sends the
// (pruned) conversation, executes the returned tool calls as one batch, and
// decides whether to continue.
//
// # Architecture
//
//   - Conversation: the ordered message history. Its first two messages, the
//     system instructions and the initial directive, are anchors that
//     pruning never removes.
//   - Dispatcher: decodes tool calls into typed ToolArgs, runs them in order
//     against a ToolExecutor, tracks Coverage and truncates outcomes.
//   - FinishGuard: refuses finish_analysis while files were read but nothing
//     was reported.
//   - NudgeController: handles turns without tool calls, escalating
//     corrective prompts and abandoning after a bounded number.
//   - Session and SingleCall: the iterative and single-call strategies.
//   - Auditor: selects the strategy once per run.
//   - EventEmitter: typed event stream for the host application.
//
// # Quick Start
//
//	auditor := agentloop.NewAuditor(client, agentloop.DefaultConfig())
//	defer auditor.Close()
//	result, err := auditor.Audit(ctx, executor, fileScanner)
package agentloop
