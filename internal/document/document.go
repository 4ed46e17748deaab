// Package document provides the mutation facade over the shared canvas
// document. Shapes and assets are created through transactional scopes so
// readers never observe a partially committed asset/shape pair.
package document

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("document: not found")
	ErrAlreadyExists = errors.New("document: already exists")
	ErrInvalidID     = errors.New("document: invalid id")
)

// Asset holds the binary payload backing one or more image shapes. Src is
// either an inline base64 data URL or an external URL.
type Asset struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
	MimeType string  `json:"mimeType"`
	Name     string  `json:"name"`
	Src      string  `json:"src"`
}

// ImageProps are the image-specific shape properties.
type ImageProps struct {
	AssetID string  `json:"assetId"`
	W       float64 `json:"w"`
	H       float64 `json:"h"`
	AltText string  `json:"altText"`
	URL     string  `json:"url"`
}

// Shape is a canvas shape. Only image shapes are created by this engine.
type Shape struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Rotation float64    `json:"rotation"`
	Opacity  float64    `json:"opacity"`
	Props    ImageProps `json:"props"`
}

// Tx is the mutation surface available inside a Run scope. HasAsset is
// the one read: callers decide inside the scope whether an asset still
// needs creating before they bind a shape to it.
type Tx interface {
	HasAsset(id string) (bool, error)
	CreateAssets(assets []Asset) error
	CreateShape(shape Shape) error
	DeleteShape(id string) error
}

// Store is the capability interface the canvas collaborator provides.
// Reads are allowed at any time; writes only inside Run, which commits
// all enclosed mutations atomically or not at all.
type Store interface {
	GetAsset(ctx context.Context, id string) (*Asset, error)
	GetShape(ctx context.Context, id string) (*Shape, error)
	Run(ctx context.Context, fn func(tx Tx) error) error
}

// QualifyShapeID resolves a bare id to its fully qualified form.
func QualifyShapeID(id string) string {
	if strings.HasPrefix(id, "shape:") {
		return id
	}
	return "shape:" + id
}

// QualifyAssetID resolves a bare id to its fully qualified form.
func QualifyAssetID(id string) string {
	if strings.HasPrefix(id, "asset:") {
		return id
	}
	return "asset:" + id
}

// IsAssetRef reports whether a reference locator points at an asset
// rather than a shape.
func IsAssetRef(ref string) bool {
	return strings.HasPrefix(ref, "asset:")
}
