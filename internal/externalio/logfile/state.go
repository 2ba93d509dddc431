package logfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Retrieve last read position for the log file from the state file.
// A missing, invalid or stale (different inode) state starts from the beginning.
func GetLastPosition(logFilePath string, stateFilePath string) (inode uint64, position int64, err error) {
	if stateFilePath == "" {
		return
	}

	data, err := os.ReadFile(stateFilePath)
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
		return
	} else if err != nil {
		err = fmt.Errorf("unable to read position file: %w", err)
		return
	}

	parts := strings.Fields(string(data))
	if len(parts) != 2 {
		return
	}
	inodeParsed, err1 := strconv.ParseUint(parts[0], 10, 64)
	posParsed, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || posParsed < 0 {
		return
	}

	fileInfo, err := os.Stat(logFilePath)
	if err != nil {
		err = fmt.Errorf("unable to stat log file: %w", err)
		return
	}
	currentInode, err := inodeOf(logFilePath)
	if err != nil {
		return
	}

	// Avoid using cached offsets if inode is not current
	inode = currentInode
	if inodeParsed != currentInode {
		return
	}
	position = min(posParsed, fileInfo.Size())
	return
}

// Save the current file read position to the state file
func SavePosition(stateFilePath string, inode uint64, position int64) (err error) {
	if stateFilePath == "" {
		return
	}

	stateDirectory := filepath.Dir(stateFilePath)
	err = os.MkdirAll(stateDirectory, 0700)
	if err != nil {
		err = fmt.Errorf("failed to create missing state directory '%s': %w", stateDirectory, err)
		return
	}

	err = os.WriteFile(stateFilePath, []byte(fmt.Sprintf("%d %d", inode, position)), 0600)
	if err != nil {
		err = fmt.Errorf("failed to write current log position to state file: %w", err)
		return
	}
	return
}
