// Package file stores encrypted file blobs and their metadata. Blobs go into a
// GridFS bucket keyed by file ID; metadata lives in the "files" collection.
// The server never decrypts blob contents.
package file

import (
	"context"
	"io"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

type (
	FileRepo struct {
		collection *mongo.Collection
		bucket     *gridfs.Bucket
	}
)

func NewFileRepo(db *mongo.Database) (*FileRepo, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, err
	}
	return &FileRepo{
		collection: db.Collection("files"),
		bucket:     bucket,
	}, nil
}

// Save streams the encrypted blob into GridFS and records its metadata.
// meta.EncryptedSize is set to the number of bytes stored. The gridfs API
// takes no context; a context deadline is applied as the bucket write
// deadline instead.
func (r *FileRepo) Save(ctx context.Context, meta *model.FileMetadata, blob io.Reader) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := r.bucket.SetWriteDeadline(deadline); err != nil {
			return common.NewStorageError("file save", err)
		}
	}

	stream, err := r.bucket.OpenUploadStreamWithID(meta.ID, meta.Filename)
	if err != nil {
		return common.NewStorageError("file save", err)
	}

	written, err := io.Copy(stream, blob)
	if err != nil {
		stream.Close()
		return common.NewStorageError("file save", err)
	}
	if err := stream.Close(); err != nil {
		return common.NewStorageError("file save", err)
	}
	meta.EncryptedSize = written

	if _, err := r.collection.InsertOne(ctx, meta); err != nil {
		return common.NewStorageError("file save", err)
	}
	return nil
}

func (r *FileRepo) Get(ctx context.Context, fileID string) (*model.FileMetadata, error) {
	var meta model.FileMetadata
	err := r.collection.FindOne(ctx, bson.M{"_id": fileID}).Decode(&meta)
	if err == mongo.ErrNoDocuments {
		return nil, common.ErrFileNotFound
	}
	if err != nil {
		return nil, common.NewStorageError("file get", err)
	}
	return &meta, nil
}

// Download streams the blob for fileID into w and returns the byte count.
func (r *FileRepo) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := r.bucket.SetReadDeadline(deadline); err != nil {
			return 0, common.NewStorageError("file download", err)
		}
	}

	n, err := r.bucket.DownloadToStream(fileID, w)
	if err == gridfs.ErrFileNotFound {
		return 0, common.ErrFileNotFound
	}
	if err != nil {
		return n, common.NewStorageError("file download", err)
	}
	return n, nil
}
