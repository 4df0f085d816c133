package common

import (
	"errors"
)

var (
	ErrInvalidHeader           = errors.New("invalid header")
	ErrUnsupportedCompression  = errors.New("unsupported compression")
	ErrInvalidCompressionTable = errors.New("invalid compression table")
	ErrMalformedIndex          = errors.New("malformed index")
	ErrCorruptRecord           = errors.New("corrupt record")
	ErrResourceDecode          = errors.New("unable to decode resource")
	ErrUnknownChapter          = errors.New("unknown chapter")
	ErrNoCover                 = errors.New("no cover image found")
	ErrNotSupported            = errors.New("book format is not supported")
)
