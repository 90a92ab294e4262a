// Package archive stores downloaded ZIP archives in cloud storage or on the
// local disk.
//
// The store is storage-agnostic via gocloud.dev/blob. A plain directory path
// is opened with fileblob; anything with a scheme goes through
// blob.OpenBucket, so the caller must import the matching driver
// (gocloud.dev/blob/s3blob, gcsblob, memblob).
//
// # Usage
//
//	store, err := archive.Open(ctx, "./downloads", 500<<20)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	n, err := store.Save(ctx, "preprod-node1-catalina.zip", resp.Body)
//
// A failed or oversized Save leaves no object behind. Saved archives can be
// listed with [Store.List], checked with [Store.Verify] and removed with
// [Store.Delete].
package archive
