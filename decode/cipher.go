package decode

import (
	"bytes"
	"cam-relay/errors"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// newBlock validates the pre-shared key and IV. A nil block means decryption is disabled.
func newBlock(key, iv []byte) (cipher.Block, error) {
	if len(key) == 0 && len(iv) == 0 {
		return nil, nil
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: key must be 16, 24 or 32 bytes, got %d", errors.ErrInvalidCipherConfig, len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", errors.ErrInvalidCipherConfig, aes.BlockSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidCipherConfig, err)
	}
	return block, nil
}

func decryptCBC(block cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	size := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%size != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", errors.ErrDecryption, len(ciphertext), size)
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	return unpadPKCS7(plain, size)
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: padded length %d", errors.ErrDecryption, len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("%w: invalid padding byte %d", errors.ErrDecryption, n)
	}
	if !bytes.Equal(data[len(data)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, fmt.Errorf("%w: padding bytes mismatch", errors.ErrDecryption)
	}
	return data[:len(data)-n], nil
}

func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

// EncryptCBC pads plaintext with PKCS#7 and encrypts it with AES-CBC. It is the sender's
// counterpart of the pipeline decrypt step.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("%w: key and iv are required", errors.ErrInvalidCipherConfig)
	}
	padded := padPKCS7(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}
