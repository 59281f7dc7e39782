package tradelog

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ext = ".jsonl"

// Entry kinds.
const (
	KindPlan     = "PLAN"
	KindOrder    = "ORDER"
	KindRejected = "REJECTED"
	KindClose    = "CLOSE"
)

type Entry struct {
	Kind    string
	Symbol  string
	Side    string
	Size    decimal.Decimal
	Price   decimal.Decimal
	OrderID string
	Reason  string
	Extra   map[string]any
}

// Journal appends one JSON line per entry to <dir>/YYYY-MM-DD.jsonl (UTC),
// switching files when the day changes. A nil *Journal discards entries.
type Journal struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
	log  *zap.Logger
}

func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Journal{dir: dir, now: time.Now}, nil
}

func (j *Journal) Append(e Entry) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.rotate(); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("symbol", e.Symbol),
		zap.String("side", e.Side),
		zap.Stringer("size", e.Size),
		zap.Stringer("price", e.Price),
	}
	if e.OrderID != "" {
		fields = append(fields, zap.String("order_id", e.OrderID))
	}
	if e.Reason != "" {
		fields = append(fields, zap.String("reason", e.Reason))
	}
	if len(e.Extra) > 0 {
		fields = append(fields, zap.Any("extra", e.Extra))
	}
	j.log.Info(e.Kind, fields...)
	return nil
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeFile()
}

func (j *Journal) rotate() error {
	day := j.now().UTC().Format("2006-01-02")
	if j.file != nil && day == j.day {
		return nil
	}
	if err := j.closeFile(); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(j.dir, day+ext), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "time",
		MessageKey:     "kind",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	j.log = zap.New(zapcore.NewCore(enc, zapcore.AddSync(f), zapcore.InfoLevel))
	j.file = f
	j.day = day
	return nil
}

func (j *Journal) closeFile() error {
	if j.file == nil {
		return nil
	}
	_ = j.log.Sync()
	err := j.file.Close()
	j.file = nil
	j.log = nil
	return err
}

// CompressOlder gzips journal files under dir last modified more than
// retentionDays ago and removes the originals.
func CompressOlder(dir string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(p) != ext {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// already compressed on an earlier run
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
