// Package retention decides which archives survive pruning.
//
// Classification walks archives newest-first with three independent
// counters and seen-key sets (calendar day, ISO week, month), each
// bounded by its configured quota. The engine executes the resulting
// deletion set, treating per-file failures as soft.
package retention
