// Package state keeps track of jobs and publishes their notifications.
//
// A Hub creates jobs and answers queries about them. Each Job owns the items it
// runs and the records derived from its notifications:
//
//   - RESULT notifications are appended to the result log and clear the
//     progress entry of the item
//   - PROGRESS notifications are merged into the progress map
//   - METRIC notifications are grouped by category, and subscribers receive
//     the whole group every time a new entry arrives
//   - META notifications update the job meta; once it carries a finish time
//     the job is done, its subscriptions are dropped and later notifications
//     are ignored
//
// Subscribers run synchronously in the goroutine that called Notify, outside of
// the job lock, in the order in which they subscribed. Read accessors return
// deep copies so callers cannot change the job through them.
//
// Stream combines a snapshot with a subscription under the job lock, which lets
// transports deliver every record of a job exactly once, whether the job is
// still running or already done.
package state
