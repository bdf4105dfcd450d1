package protocol

// This package implements parsing for the Command Manager protocol, the line
// oriented text protocol used to drive wind tunnel measurement subsystems.
//
// === General Syntax
//
//   ```
//     <opcode><payload>#
//   ```
//
// - `<opcode>` is exactly ten characters, padded with underscores
// - `<payload>` is zero or more characters, its meaning depends on the opcode
// - `#` is the sentinel, every message must end with one
//
// Messages shorter than eleven characters or missing the sentinel are dropped
// silently. So are unknown opcodes. The parser is a gate, not an error reporter.
//
// Only a single trailing `#` is stripped. Any earlier `#` is part of the payload.
//
// === RUN_NO____ / POLAR_NO__
//
//  ```
//    > RUN_NO____123#
//    < Run number: 123
//    > RUN_NO____ABC#
//    < Invalid Run number: ABC
//  ```
//
// The payload must be a signed decimal integer that fits in an int. The opcode
// is recorded in the history even when the payload is invalid.
//
// === USR_MSG___
//
//  ```
//    > USR_MSG___Start Tunnel#
//    < Start Tunnel
//  ```
//
// === D_USR_FLD_
//
//  ```
//    > D_USR_FLD_Parameter1,0.004947,Parameter2,0.203044,#
//    < Parameters:
//    < Parameter1 = 0.004947
//    < Parameter2 = 0.203044
//  ```
//
// A comma separated list of name/value pairs. Empty tokens are dropped. An odd
// number of tokens drops the whole message, nothing is printed or recorded.
// Names longer than 15 characters and values that are not finite decimals are
// reported per pair and the remaining pairs are still printed.
//
// === HISTORY___
//
//  ```
//    > HISTORY___#
//    < D_USR_FLD_
//    < USR_MSG___
//    < POLAR_NO__
//    < RUN_NO____
//  ```
//
// Prints the last five data opcodes, newest first. HISTORY___ itself is never
// recorded so querying the history does not change it.
//
