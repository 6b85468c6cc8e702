// Package progress holds the lesson-qualification and course-completion rules and the
// read-only roll-ups computed over progress rows. Nothing here touches storage; callers
// load records, apply a rule and persist the result.
//
// Monotonic fields (WatchPercentage, QuizScore) only move through max(current, new).
// Sticky flags (QuizPassed, IsQualified) are never reset once true, and CompletedAt
// stamps are written at most once.
package progress
