package paytm

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"sort"
	"strings"
)

// Paytm's published checksum scheme: the signature is the AES-128-CBC
// encryption (static IV, merchant key) of sha256hex(body + "|" + salt)
// appended with the 4-char salt.
const checksumIV = "@@@@&&&&####$$$$"

const saltLength = 4

var saltAlphabet = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// GenerateSignature signs form-style params (CHECKSUMHASH excluded).
func GenerateSignature(params map[string]string, key string) (string, error) {
	return GenerateSignatureByString(paramsToString(params), key)
}

// GenerateSignatureByString signs a raw body, typically marshaled JSON.
func GenerateSignatureByString(body, key string) (string, error) {
	salt, err := randomSalt(saltLength)
	if err != nil {
		return "", err
	}
	return encrypt(calculateHash(body, salt), key)
}

// VerifySignature checks a callback's CHECKSUMHASH against its params.
func VerifySignature(params map[string]string, key, checksum string) (bool, error) {
	filtered := make(map[string]string, len(params))
	for k, v := range params {
		if strings.EqualFold(k, "CHECKSUMHASH") {
			continue
		}
		filtered[k] = v
	}
	return VerifySignatureByString(paramsToString(filtered), key, checksum)
}

// VerifySignatureByString checks a signature against a raw body.
func VerifySignatureByString(body, key, checksum string) (bool, error) {
	if checksum == "" {
		return false, nil
	}
	decrypted, err := decrypt(checksum, key)
	if err != nil {
		return false, err
	}
	if len(decrypted) <= saltLength {
		return false, nil
	}
	salt := decrypted[len(decrypted)-saltLength:]
	return decrypted == calculateHash(body, salt), nil
}

func calculateHash(body, salt string) string {
	sum := sha256.Sum256([]byte(body + "|" + salt))
	return hex.EncodeToString(sum[:]) + salt
}

// paramsToString joins values sorted by key with "|", per the official
// checksum utilities.
func paramsToString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, params[k])
	}
	return strings.Join(values, "|")
}

func randomSalt(length int) (string, error) {
	salt := make([]rune, length)
	max := big.NewInt(int64(len(saltAlphabet)))
	for i := range salt {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		salt[i] = saltAlphabet[n.Int64()]
	}
	return string(salt), nil
}

func encrypt(data, key string) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(data), block.BlockSize())
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(checksumIV)).CryptBlocks(encrypted, padded)

	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func decrypt(encoded, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return "", errors.New("ciphertext length invalid")
	}

	decrypted := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, []byte(checksumIV)).CryptBlocks(decrypted, raw)

	unpadded, err := pkcs7Unpad(decrypted, block.BlockSize())
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("padded data empty")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("padding invalid")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("padding invalid")
		}
	}
	return data[:len(data)-padding], nil
}
