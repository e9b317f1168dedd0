// Package segment implements segment definition management.
//
// The service layer validates rule sets, keeps the cached match count
// fresh, and resolves segments to customer lists through the
// segmentation resolver. It depends on interfaces defined in this
// package and should never import from api/.
package segment
