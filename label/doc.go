// Package label reads a flat object-detection corpus into an in-memory index.
//
// A corpus is two sibling directories: one holding images, one holding a
// plain-text label file per image that shares the image's stem. Each label
// line is an integer class id followed by four or more numeric geometry
// fields (a bounding box or a polygon):
//
//	0 0.512 0.433 0.120 0.096
//	3 0.10 0.10 0.20 0.10 0.20 0.30
//
// Geometry is never interpreted; the original line is kept so that it can be
// written back unchanged. An empty label file marks a background image.
//
// # Usage
//
//	ds, err := label.Build(ctx, fs.Default, "data/all_images", "data/all_labels", label.Options{})
//	for _, img := range ds.Images {
//	    fmt.Println(img.ID, img.Record.ClassSet())
//	}
package label
