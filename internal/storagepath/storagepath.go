// Package storagepath computes where a document's bytes live.
//
// Relative paths follow the stable convention <ModeLetter>/<StorageFolderName>/<yyyy>/<mm>
// and always use forward slashes, whatever the host operating system.
package storagepath

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"docstore/internal/model"
)

var (
	ErrUnknownStorageMode = errors.New("unknown storage mode")
	ErrInvalidFolderName  = errors.New("storage folder name must be 1-10 alphanumeric characters")
	ErrInvalidPath        = errors.New("invalid relative storage path")
)

// MaxFolderNameLength is the longest allowed DocumentType.StorageFolderName.
const MaxFolderNameLength = 10

var modeLetters = [model.StorageModeCount]string{
	model.StorageModeWriteOnceReadMany: "W",
	model.StorageModeTemporary:         "T",
	model.StorageModeEditable:          "E",
	model.StorageModeVersioned:         "V",
	model.StorageModeReplaceable:       "R",
}

// Placement is the computed location of a new document.
type Placement struct {
	// Folder is the relative storage folder, e.g. "W/RPT/2024/03".
	Folder string
	// ExpiresAt is set when the document type has a bounded lifetime.
	ExpiresAt *time.Time
}

// ModeLetter returns the single-letter folder prefix for m.
func ModeLetter(m model.StorageMode) (string, error) {
	if !m.Valid() || modeLetters[m] == "" {
		return "", fmt.Errorf("%w: %d", ErrUnknownStorageMode, int(m))
	}
	return modeLetters[m], nil
}

// ValidateFolderName checks a DocumentType.StorageFolderName.
func ValidateFolderName(name string) error {
	if name == "" || len(name) > MaxFolderNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidFolderName, name)
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("%w: %q", ErrInvalidFolderName, name)
		}
	}
	return nil
}

// RelativePath returns <ModeLetter>/<StorageFolderName>/<yyyy>/<mm> for the effective date.
func RelativePath(dt *model.DocumentType, effective time.Time) (string, error) {
	letter, err := ModeLetter(dt.StorageMode)
	if err != nil {
		return "", err
	}
	if err := ValidateFolderName(dt.StorageFolderName); err != nil {
		return "", err
	}
	return path.Join(letter, dt.StorageFolderName,
		fmt.Sprintf("%04d", effective.Year()),
		fmt.Sprintf("%02d", int(effective.Month()))), nil
}

// Resolve computes the placement of a document of type dt written at now.
// Temporary documents are bucketed by their expiration month so that documents
// expiring together share a folder; all other modes use the write month.
func Resolve(dt *model.DocumentType, now time.Time) (Placement, error) {
	var p Placement
	effective := now
	if exp, ok := dt.InActiveLifeTime.ExpiresAt(now); ok {
		p.ExpiresAt = &exp
		if dt.StorageMode == model.StorageModeTemporary {
			effective = exp
		}
	}

	folder, err := RelativePath(dt, effective)
	if err != nil {
		return Placement{}, err
	}
	p.Folder = folder
	return p, nil
}

// ValidateRelative rejects paths that are absolute or escape their node root.
func ValidateRelative(rel string) error {
	if rel == "" {
		return ErrInvalidPath
	}
	slashed := strings.ReplaceAll(rel, `\`, "/")
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidPath, rel)
		}
	}
	return nil
}

// ValidateFileName rejects names that carry directory components.
func ValidateFileName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: file name %q", ErrInvalidPath, name)
	}
	return nil
}

// PhysicalPath joins host path, node path, relative folder and file name
// using the local separator.
func PhysicalPath(hostPath, nodePath, folder, fileName string) string {
	return filepath.Join(hostPath, nodePath, filepath.FromSlash(folder), fileName)
}
