package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Common errors returned by the parser
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errGLBTooSmall        = errors.New("GLB file too small")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidDataURI     = errors.New("invalid data URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errNoImageSource      = errors.New("image has neither a URI nor a buffer view")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
	buffers        [][]byte
}

// gltfParser loads a glTF or GLB document and resolves its binary buffers.
type gltfParser interface {
	// Parse reads and parses the file at path. GLB is detected by extension or magic number.
	//
	// Parameters:
	//   - path: path to the .gltf or .glb file
	//
	// Returns:
	//   - error: error if the file cannot be read or parsed
	Parse(path string) error

	// ParseBytes parses an in-memory document. Relative URIs resolve against baseDir.
	//
	// Parameters:
	//   - data: glTF JSON or GLB bytes
	//   - baseDir: directory used for external buffers and images
	//
	// Returns:
	//   - error: error if parsing fails
	ParseBytes(data []byte, baseDir string) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// BaseDir returns the directory relative URIs resolve against.
	BaseDir() string

	// Buffers returns the decoded contents of every buffer in document order.
	Buffers() [][]byte

	// ImageData returns the encoded bytes of an image and its MIME type when known.
	//
	// Parameters:
	//   - index: the image index
	//
	// Returns:
	//   - []byte: the encoded image
	//   - string: the declared MIME type, possibly empty
	//   - error: error if the source cannot be read
	ImageData(index int) ([]byte, string, error)
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) BaseDir() string {
	return p.baseDir
}

func (p *gltfParserImpl) Buffers() [][]byte {
	return p.buffers
}

func (p *gltfParserImpl) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".glb") && !isGLB(data) {
		return errInvalidGLBMagic
	}
	return p.ParseBytes(data, filepath.Dir(path))
}

func (p *gltfParserImpl) ParseBytes(data []byte, baseDir string) error {
	p.baseDir = baseDir
	if isGLB(data) {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic
}

func (p *gltfParserImpl) parseGLTF(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	return p.finish(&doc)
}

// parseGLB splits a GLB container into its JSON and BIN chunks.
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errGLBTooSmall
	}
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		if int64(chunk.ChunkLength) > int64(r.Len()) {
			return fmt.Errorf("chunk of %d bytes exceeds the remaining %d", chunk.ChunkLength, r.Len())
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = body
		case gltfGLBChunkBIN:
			p.glbBinaryChunk = body
		}
	}
	if jsonData == nil {
		return errMissingJSONChunk
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	return p.finish(&doc)
}

func (p *gltfParserImpl) finish(doc *gltfDocument) error {
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = doc
	return nil
}

// loadBuffers resolves every buffer from its URI or, for a URI-less first buffer, the GLB
// binary chunk.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	p.buffers = make([][]byte, len(doc.Buffers))
	for i, buf := range doc.Buffers {
		var data []byte
		switch {
		case buf.URI != "":
			loaded, err := p.loadURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			data = loaded
		case i == 0 && p.glbBinaryChunk != nil:
			data = p.glbBinaryChunk
		default:
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		}
		if uint64(len(data)) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w: have %d bytes, declared %d", i, errBufferSizeMismatch, len(data), buf.ByteLength)
		}
		p.buffers[i] = data[:buf.ByteLength]
	}
	return nil
}

// loadURI reads a data URI or a file relative to the base directory.
func (p *gltfParserImpl) loadURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		data, _, err := decodeDataURI(uri)
		return data, err
	}
	data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", uri, err)
	}
	return data, nil
}

// decodeDataURI decodes data:[<mediatype>][;base64],<data> and returns the payload and media
// type. Only base64 payloads are accepted.
func decodeDataURI(uri string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", errInvalidDataURI
	}
	mediaType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return nil, "", fmt.Errorf("%w: unsupported encoding %q", errInvalidDataURI, header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errInvalidDataURI, err)
	}
	return data, mediaType, nil
}

func (p *gltfParserImpl) ImageData(index int) ([]byte, string, error) {
	if p.document == nil || index < 0 || index >= len(p.document.Images) {
		return nil, "", fmt.Errorf("image index %d out of range", index)
	}
	img := p.document.Images[index]

	if img.URI != "" {
		if strings.HasPrefix(img.URI, "data:") {
			data, mediaType, err := decodeDataURI(img.URI)
			return data, firstNonEmpty(img.MimeType, mediaType), err
		}
		data, err := p.loadURI(img.URI)
		return data, img.MimeType, err
	}

	if img.BufferView == nil {
		return nil, "", errNoImageSource
	}
	bv := *img.BufferView
	if bv < 0 || bv >= len(p.document.BufferViews) {
		return nil, "", fmt.Errorf("image buffer view %d out of range", bv)
	}
	view := p.document.BufferViews[bv]
	if view.Buffer < 0 || view.Buffer >= len(p.buffers) {
		return nil, "", fmt.Errorf("buffer view %d references buffer %d", bv, view.Buffer)
	}
	buf := p.buffers[view.Buffer]
	if view.ByteOffset+view.ByteLength > uint64(len(buf)) {
		return nil, "", fmt.Errorf("buffer view %d: %w", bv, errBufferSizeMismatch)
	}
	return buf[view.ByteOffset : view.ByteOffset+view.ByteLength], img.MimeType, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
