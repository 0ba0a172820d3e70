package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestSwapRequest_Fields(t *testing.T) {
	typ := reflect.TypeOf(SwapRequest{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "RequestID", "uniqueIndex")
	assertGormTag(t, typ, "SessionID", "index")
	assertGormTag(t, typ, "ComboKey", "index")
	assertGormTag(t, typ, "APIVariant", "size:16")
	assertGormTag(t, typ, "APIVariant", "index")
	assertGormTag(t, typ, "Success", "index")
	assertGormTag(t, typ, "ErrorMessage", "size:512")
}

func TestRunSession_Fields(t *testing.T) {
	typ := reflect.TypeOf(RunSession{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:64")
	assertGormTag(t, typ, "Requests", "foreignKey:SessionID")

	f, ok := typ.FieldByName("FinishedAt")
	if !ok {
		t.Fatal("RunSession.FinishedAt: field not found")
	}
	if f.Type.Kind() != reflect.Ptr {
		t.Errorf("FinishedAt should be a pointer so unfinished sessions stay NULL, got %s", f.Type)
	}
}

func TestTargetCard_Fields(t *testing.T) {
	typ := reflect.TypeOf(TargetCard{})

	assertGormTag(t, typ, "ProductID", "primaryKey")
	assertGormTag(t, typ, "ProductID", "size:32")
	assertGormTag(t, typ, "FilePath", "size:256")
}
