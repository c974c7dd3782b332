package badge

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding is the character set of the CSV log
type Encoding string

const (
	EncodingGBK     Encoding = "GBK"
	EncodingUTF8BOM Encoding = "UTF-8 with BOM"
	EncodingUTF8    Encoding = "UTF-8"
)

// Encodings lists the supported log encodings, default first
var Encodings = []Encoding{EncodingGBK, EncodingUTF8BOM, EncodingUTF8}

// Header is written as the first row of a new log file
var Header = []string{"timestamp", "name", "id", "badge_id", "access_level"}

// Log appends records to a delimited file
type Log struct {
	path    string
	file    *os.File
	encoder io.WriteCloser
	writer  *csv.Writer
}

// OpenLog opens path in append mode, creating it if needed. The header row
// is written only when the file is empty, and so is the UTF-8 byte order mark.
func OpenLog(path string, enc Encoding) (*Log, error) {
	if path == "" {
		return nil, errors.New("no log file name")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat log %s", path)
	}
	empty := st.Size() == 0

	l := &Log{path: path, file: f}
	var out io.Writer = f
	switch enc {
	case EncodingGBK:
		l.encoder = transform.NewWriter(f, simplifiedchinese.GBK.NewEncoder())
		out = l.encoder
	case EncodingUTF8BOM:
		if empty {
			l.encoder = transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
			out = l.encoder
		}
	case EncodingUTF8:
	default:
		f.Close()
		return nil, errors.Errorf("unsupported encoding %q", enc)
	}

	l.writer = csv.NewWriter(out)
	l.writer.UseCRLF = true

	if empty {
		if err := l.writeRow(Header); err != nil {
			l.Close()
			return nil, err
		}
	}
	return l, nil
}

func (l *Log) Path() string {
	return l.path
}

// Write appends one record and flushes it to the file
func (l *Log) Write(rec Record) error {
	return l.writeRow(rec.Row())
}

func (l *Log) writeRow(row []string) error {
	if err := l.writer.Write(row); err != nil {
		return errors.Wrapf(err, "write log %s", l.path)
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return errors.Wrapf(err, "write log %s", l.path)
	}
	return nil
}

func (l *Log) Close() error {
	l.writer.Flush()
	err := l.writer.Error()
	if l.encoder != nil {
		if cerr := l.encoder.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "close log %s", l.path)
	}
	return nil
}
