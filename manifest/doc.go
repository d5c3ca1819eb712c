// Package manifest writes and reads the files that describe a split dataset.
//
// data.yaml is the training manifest consumed by YOLO-style trainers:
//
//	path: /data/out
//	train: train/images
//	val: valid/images
//	test: test/images
//	nc: 2
//	names:
//	  0: coral
//	  1: sponge
//
// test.yaml is the same manifest with val pointing at the test split so that
// a validation run evaluates on held-out data. It is only written when a test
// split exists.
//
// split_report.json records how the split was produced.
package manifest
