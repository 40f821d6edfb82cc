package entity

import "errors"

var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrNoImages         = errors.New("no test images found")
	ErrImageNotFound    = errors.New("image not found")
	ErrTooManyMasks     = errors.New("segmenter returned more masks than boxes")
	ErrChannelOrder     = errors.New("unsupported channel order")
)
