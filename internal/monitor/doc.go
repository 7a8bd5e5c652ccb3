// Package monitor wires the integrity engine to the command line: it resolves
// configuration into stores, walkers and guards, renders scan results, asks
// for authorization and applies the answer.
package monitor
