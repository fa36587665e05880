package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"

	"gorm.io/gorm"
)

const (
	codeBytes       = 4
	maxCodeAttempts = 10
)

// errCodeTaken is returned by a code writer whose write lost the code to
// another row.
var errCodeTaken = errors.New("code taken")

// CodeSource produces candidate referral or boost codes.
type CodeSource func() (string, error)

// RandomHexCode draws 4 random bytes and hex-encodes them.
func RandomHexCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func codeHeld(db *gorm.DB, model interface{}, column, code string) (bool, error) {
	var taken int64
	if err := db.Unscoped().Model(model).Where(column+" = ?", code).Count(&taken).Error; err != nil {
		return false, &StorageError{Operation: "check code uniqueness", Err: err}
	}
	return taken > 0, nil
}

// claimUniqueCode draws codes and hands each free one to write, which stores
// it. A write that returns errCodeTaken, or fails while another row now holds
// the code, lost a race and the next code is drawn. It gives up after
// maxCodeAttempts draws.
func claimUniqueCode(db *gorm.DB, model interface{}, column string, next CodeSource, write func(code string) error) (string, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := next()
		if err != nil {
			return "", err
		}
		if code == "" {
			continue
		}

		held, err := codeHeld(db, model, column, code)
		if err != nil {
			return "", err
		}
		if !held {
			err = write(code)
			if err == nil {
				return code, nil
			}
			if !errors.Is(err, errCodeTaken) {
				if held, herr := codeHeld(db, model, column, code); herr != nil || !held {
					return "", err
				}
			}
		}
		log.Printf("⚠️ [REFERRAL] code collision on %s (attempt %d/%d)", column, attempt, maxCodeAttempts)
	}
	return "", ErrCodeSpaceExhausted
}
