// Package materialize copies a partitioned dataset into a blob store.
//
// Every assigned image is written to <split>/images/<file> and its label to
// <split>/labels/<stem>.txt. Copies run on a bounded worker pool. A failed
// copy is recorded as an IOFailure and the remaining copies continue.
package materialize
