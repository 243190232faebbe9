// Package model contains data structures for launch parameters, filtered records and DTO
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

type AppMode string

const (
	ModeCLI    = AppMode("cli")
	ModeServer = AppMode("server")
)

const DefaultServerAddress = ":8080"

type AppInit struct {
	Mode        AppMode
	Address     string
	ConfigPath  string
	Workers     int
	TaskTimeout time.Duration
	Nodes       NodesList
	Quorum      int
	FilterParam FilterParam
}

// NodesList - для чтения списка filter-node адресов из os.Args
type NodesList []string

func (n *NodesList) String() string {
	return fmt.Sprint(*n)
}

// Set normalizes the address to a base URL and skips duplicates
func (n *NodesList) Set(value string) error {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return errors.New("empty node address")
	}
	if !strings.Contains(value, "://") {
		value = "http://" + value
	}
	for _, v := range *n {
		if v == value {
			return nil
		}
	}
	*n = append(*n, value)
	return nil
}

// FilterParam - term and list of sources given in CLI mode
type FilterParam struct {
	Term          string
	Source        []string // Имя/имена файлов с JSON-массивом записей, пусто - читаем stdin
	PrintFileName bool     // печатать имя файла перед результатом, если файлов несколько
}

// Record is a single filtered entity. Only id and url are interpreted,
// the rest of the object is kept as received.
type Record struct {
	ID  any
	URL string

	raw        json.RawMessage
	decodedID  any
	decodedURL string
}

type recordFields struct {
	ID  any     `json:"id"`
	URL *string `json:"url"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var f recordFields
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return err
	}
	if f.URL == nil {
		return fmt.Errorf("record has no %q attribute", "url")
	}

	r.ID = f.ID
	r.URL = *f.URL
	r.raw = append(json.RawMessage(nil), data...)
	r.decodedID = f.ID
	r.decodedURL = *f.URL
	return nil
}

// MarshalJSON re-emits the received object as is. If ID or URL were changed
// after decoding, they are patched into the object and other attributes stay.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return json.Marshal(recordFields{ID: r.ID, URL: &r.URL})
	}
	if r.URL == r.decodedURL && reflect.DeepEqual(r.ID, r.decodedID) {
		return r.raw, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.raw, &obj); err != nil {
		return nil, err
	}
	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, err
	}
	url, err := json.Marshal(r.URL)
	if err != nil {
		return nil, err
	}
	obj["id"] = id
	obj["url"] = url
	return json.Marshal(obj)
}

type FilterTask struct {
	TaskID   string   `json:"tid"`
	Term     string   `json:"term"`
	Records  []Record `json:"records"`
	FileName string   `json:"file_name,omitempty"`
}

// FilterRequest - тело POST /filter
type FilterRequest struct {
	Term    string   `json:"term"`
	Records []Record `json:"records"`
}

type FilterResult struct {
	TaskID   string   `json:"tid"`
	HashSumm uint64   `json:"hash"`
	Output   []Record `json:"output"`
}

// CLITask - задание для локальной обработки со своим контекстом
type CLITask struct {
	Task      FilterTask
	CTX       context.Context
	CancelCTX context.CancelFunc
}

// TaskOutcome is sent by a worker once a producer has finished a CLITask
type TaskOutcome struct {
	TaskID   string
	Producer string
	Result   *FilterResult
	Err      error
}
