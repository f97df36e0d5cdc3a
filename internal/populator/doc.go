// Package populator keeps a frame cache filled around the playhead.
//
// A [Populator] compares the slots a cache should hold against what it has
// and what is already in flight. [Populator.Update] runs once per player
// tick and never blocks:
//
//  1. poll every pending request once; insert results whose slot is still
//     wanted, discard the rest, and remember failed slots
//  2. cancel pending requests whose slot left the wanted range
//  3. evict cache entries outside the wanted range
//  4. request the missing slots closest to the current time first
//
// Cancellation is best effort, so a cancelled request may still complete.
// Step 1 re-checks every completion against the current wanted range, which
// makes late results harmless.
//
// A slot whose request failed is not requested again until [Populator.ClearFailed]
// is called (on seek or window change), and the failure is logged once.
package populator
