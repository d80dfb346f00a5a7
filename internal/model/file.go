package model

import "time"

type (
	// FileMetadata describes one uploaded encrypted blob. IV and AuthTag are
	// client-supplied base64 strings needed to decrypt; the blob itself lives
	// in GridFS under ID.
	FileMetadata struct {
		ID            string    `json:"fileId" bson:"_id"`
		Filename      string    `json:"filename" bson:"filename"`
		MimeType      string    `json:"mimeType" bson:"mimeType"`
		IV            string    `json:"iv" bson:"iv"`
		AuthTag       string    `json:"authTag" bson:"authTag"`
		OriginalSize  int64     `json:"originalSize" bson:"originalSize"`
		EncryptedSize int64     `json:"encryptedSize" bson:"encryptedSize"`
		UploaderID    string    `json:"uploaderId" bson:"uploaderId"`
		UploadedAt    time.Time `json:"uploadedAt" bson:"uploadedAt"`
	}
)
