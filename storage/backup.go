package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"promise-tracker/config"
)

// BackupAPI erweitert S3API um das Auflisten für die Rotation.
type BackupAPI interface {
	S3API
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// DumpFunc erzeugt einen unkomprimierten Datenbank-Dump.
type DumpFunc func(ctx context.Context, w io.Writer) error

// Backup lädt gzip-komprimierte Dumps in einen Bucket und behält die neuesten Keep Stück.
type Backup struct {
	Client BackupAPI
	Bucket string
	Prefix string
	Keep   int
	Dump   DumpFunc
	Logger *zap.Logger
	now    func() time.Time
}

func NewBackup(client BackupAPI, bucket string, keep int, dump DumpFunc, logger *zap.Logger) *Backup {
	return &Backup{Client: client, Bucket: bucket, Prefix: "backups/", Keep: keep, Dump: dump, Logger: logger, now: time.Now}
}

// PGDump ruft pg_dump mit den Zugangsdaten aus der Konfiguration auf.
func PGDump(cfg *config.Config) DumpFunc {
	return func(ctx context.Context, w io.Writer) error {
		cmd := exec.CommandContext(ctx, "pg_dump",
			"-h", cfg.DBHost,
			"-p", strconv.Itoa(cfg.DBPort),
			"-U", cfg.DBUser,
			"-d", cfg.DBName,
			"-w", // Passwort kommt über PGPASSWORD
		)
		cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.DBPassword))
		cmd.Stdout = w
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("pg_dump: %w: %s", err, stderr.String())
		}
		return nil
	}
}

// Run erstellt ein Backup, lädt es hoch und rotiert alte Backups.
func (b *Backup) Run(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := b.Dump(ctx, gz); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("%sbackup-%s.sql.gz", b.Prefix, b.now().UTC().Format("2006-01-02T15-04-05Z"))
	if _, err := b.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/gzip"),
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	b.Logger.Info("Backup uploaded", zap.String("bucket", b.Bucket), zap.String("key", key), zap.Int("bytes", buf.Len()))

	if _, err := b.Rotate(ctx); err != nil {
		return key, err
	}
	return key, nil
}

// Rotate löscht alle bis auf die neuesten Keep Backups und liefert die Anzahl gelöschter Objekte.
// Einzelne Löschfehler werden protokolliert, brechen die Rotation aber nicht ab.
func (b *Backup) Rotate(ctx context.Context) (int, error) {
	out, err := b.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.Bucket),
		Prefix: aws.String(b.Prefix),
	})
	if err != nil {
		return 0, err
	}
	if len(out.Contents) <= b.Keep {
		b.Logger.Info("No backup rotation needed", zap.Int("count", len(out.Contents)), zap.Int("keep", b.Keep))
		return 0, nil
	}

	objects := out.Contents
	sort.Slice(objects, func(i, j int) bool {
		return aws.ToTime(objects[i].LastModified).After(aws.ToTime(objects[j].LastModified))
	})

	deleted := 0
	for _, obj := range objects[b.Keep:] {
		key := aws.ToString(obj.Key)
		if _, err := b.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.Bucket),
			Key:    obj.Key,
		}); err != nil {
			b.Logger.Warn("Failed to delete old backup", zap.String("key", key), zap.Error(err))
			continue
		}
		b.Logger.Info("Old backup deleted", zap.String("key", key))
		deleted++
	}
	return deleted, nil
}
