/*
Package submission stores participant code between edits.

Each participant session owns one file, game_<session>.js, under the store
directory. Code is screened by the validator before it is written, so the
store never holds a blocked submission. Uploaded bytes go through Intake
first, which refuses binary data and non-UTF-8 text.

ErrorLog keeps the most recent client-side runtime errors reported by the
host page, each tagged with a short ERR- id the participant can quote.
*/
package submission
