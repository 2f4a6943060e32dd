package creds

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strings"
)

// Chromium cookie encryption parameters. Slack's desktop app is an
// Electron build, so its cookie store follows the Chromium format.
var (
	cookieSalt       = []byte("saltysalt")
	cookieKeyLen     = 16
	cookieIterations = 1003
	cookieIV         = []byte("                ")
)

// hostKeys expands a hostname into the host_key forms Chromium stores:
// each registrable suffix with and without a leading dot.
func hostKeys(hostname string) []string {
	if hostname == "localhost" {
		return []string{hostname}
	}

	labels := strings.Split(hostname, ".")
	var keys []string
	for i := 2; i <= len(labels); i++ {
		domain := strings.Join(labels[len(labels)-i:], ".")
		keys = append(keys, domain, "."+domain)
	}
	return keys
}

// decryptCookie strips the 3-byte "v10" prefix and decrypts AES-128-CBC
// with the fixed space IV. Trailing PKCS7 padding is removed.
func decryptCookie(encrypted, key []byte) (string, error) {
	if len(encrypted) <= 3 {
		return "", nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	payload := encrypted[3:]
	if len(payload)%aes.BlockSize != 0 {
		return "", fmt.Errorf("encrypted cookie is %d bytes, not a whole number of blocks", len(payload))
	}

	plain := make([]byte, len(payload))
	cipher.NewCBCDecrypter(block, cookieIV).CryptBlocks(plain, payload)

	if pad := int(plain[len(plain)-1]); pad > 0 && pad <= aes.BlockSize && pad <= len(plain) {
		plain = plain[:len(plain)-pad]
	}
	return string(plain), nil
}
