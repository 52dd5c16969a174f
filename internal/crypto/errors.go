package crypto

import "errors"

var (
	ErrKeyNotLoaded       = errors.New("encryption key is not loaded")
	ErrWrongPassword      = errors.New("wrong master password")
	ErrEmptyPassword      = errors.New("master password is empty")
	ErrCipherTextTooShort = errors.New("ciphertext too short")
)
