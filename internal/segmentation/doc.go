// Package segmentation implements tone-band Otsu segmentation: a grayscale
// image is split into intensity bands, each band is thresholded with Otsu's
// method restricted to its own pixels, and the per-band masks are ORed into a
// single binary image.
//
// Every function takes its inputs by value or as read-only Mats and returns
// newly allocated Mats owned by the caller.
package segmentation
