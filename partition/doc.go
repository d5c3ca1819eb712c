// Package partition assigns images to train, valid and test splits.
//
// Stratified is the primary strategy: it apportions every class's image count
// over the splits and greedily places images, rarest classes first, into the
// split that most needs their classes. When a class is too small to appear in
// every split, Stratified fails with ErrStratificationInfeasible and callers
// fall back to Random, a seeded shuffle-and-slice.
//
// Dump removes a number of background images before partitioning.
//
// All three are deterministic for a given seed. Each draws from its own
// stream (see NewRand) so changing, say, the dump count does not reshuffle
// the image order used by Stratified.
package partition
