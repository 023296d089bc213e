package db

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
)

func openLogged(t *testing.T, buf *bytes.Buffer, slow time.Duration) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: buf})
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := Open(sqlite.Open(dsn), WithLogger(logg, slow))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	buf.Reset()
	return NewFromConn(conn)
}

func TestGormLoggerSkipsNotFound(t *testing.T) {
	var buf bytes.Buffer
	client := openLogged(t, &buf, 0)

	var row testModel
	err := client.DB().WithContext(context.Background()).First(&row, 42).Error
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no log output, got %s", buf.String())
	}
}

func TestGormLoggerReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	client := openLogged(t, &buf, 0)

	_ = client.DB().Create(&testModel{Code: "dup"}).Error
	if err := client.DB().Create(&testModel{Code: "dup"}).Error; err == nil {
		t.Fatal("expected unique violation")
	}
	if !strings.Contains(buf.String(), `"message":"db.query_failed"`) {
		t.Fatalf("expected failure entry, got %s", buf.String())
	}
}

func TestGormLoggerReportsSlowQueries(t *testing.T) {
	var buf bytes.Buffer
	client := openLogged(t, &buf, time.Nanosecond)

	var count int64
	if err := client.DB().Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if !strings.Contains(buf.String(), `"message":"db.slow_query"`) {
		t.Fatalf("expected slow query entry, got %s", buf.String())
	}
}
