// Package adaptive implements the difficulty controller used during a quiz
// session. It moves a session between easy, medium and hard one level at a
// time based on answer correctness and response time, and selects the next
// question from a pool accordingly.
//
// All functions are pure. A State value is never modified in place: Advance
// returns the successor state.
package adaptive
