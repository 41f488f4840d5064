// Package export writes report rows to CSV and plain text files.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dejisec/tattletale/internal/model"
)

// TimestampLayout is the timestamp embedded in output file names.
const TimestampLayout = "2006.01.02_15.04.05"

var sharedHeader = []string{"Hash", "Username", "Cracked"}

// SharedHashesFilename returns the CSV file name for a run at t.
func SharedHashesFilename(t time.Time) string {
	return fmt.Sprintf("tattletale_shared_hashes_%s.csv", t.Format(TimestampLayout))
}

// UserPassFilename returns the text file name for a run at t.
func UserPassFilename(t time.Time) string {
	return fmt.Sprintf("tattletale_user_pass_%s.txt", t.Format(TimestampLayout))
}

// WriteSharedHashesCSV writes Hash,Username,Cracked rows. Username is the
// DOMAIN\user logon name.
func WriteSharedHashesCSV(w io.Writer, rows []model.SharedHashRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(sharedHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		record := []string{r.Hash, logonName(r.Domain, r.Username), strconv.FormatBool(r.Cracked)}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteUserPassTXT writes one username:password line per cracked account.
func WriteUserPassTXT(w io.Writer, rows []model.UserPassRow) error {
	bw := bufio.NewWriter(w)
	for _, r := range rows {
		if _, err := fmt.Fprintf(bw, "%s:%s\n", logonName(r.Domain, r.Username), r.Plaintext); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	return bw.Flush()
}

// Files holds the paths written by WriteAll.
type Files struct {
	SharedHashes string
	UserPass     string
}

// WriteAll writes both exports into dir, named after the report timestamp.
func WriteAll(dir string, r *model.Report) (Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Files{}, fmt.Errorf("failed to create output dir: %w", err)
	}

	files := Files{
		SharedHashes: filepath.Join(dir, SharedHashesFilename(r.GeneratedAt)),
		UserPass:     filepath.Join(dir, UserPassFilename(r.GeneratedAt)),
	}

	if err := writeFile(files.SharedHashes, func(w io.Writer) error {
		return WriteSharedHashesCSV(w, r.SharedHashRows)
	}); err != nil {
		return Files{}, err
	}
	if err := writeFile(files.UserPass, func(w io.Writer) error {
		return WriteUserPassTXT(w, r.CrackedRows)
	}); err != nil {
		return Files{}, err
	}

	return files, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func logonName(domain, user string) string {
	if domain == "" {
		return user
	}
	return domain + `\` + user
}
