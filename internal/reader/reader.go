// Package reader loads a JSON array of records from stdin or from a file
package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/UnendingLoop/URLFilter/internal/model"
)

func ReadRecords(stdin io.Reader, fileName string) ([]model.Record, error) {
	switch fileName {
	case "":
		return decodeRecords(stdin)
	default:
		return readFile(fileName)
	}
}

func readFile(fileName string) ([]model.Record, error) {
	// проверяем открывается ли файл
	info, err := os.Stat(fileName)
	if err != nil {
		return nil, fmt.Errorf("error opening file %q: %w", fileName, err)
	}
	// проверяем не папка ли это
	if info.IsDir() {
		return nil, fmt.Errorf("specified source filename %q is a directory", fileName)
	}

	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("couldn't open file %q: %w", fileName, err)
	}
	defer file.Close()

	records, err := decodeRecords(file)
	if err != nil {
		return nil, fmt.Errorf("file %q: %w", fileName, err)
	}
	return records, nil
}

func decodeRecords(r io.Reader) ([]model.Record, error) {
	dec := json.NewDecoder(r)

	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode records array: %w", err)
	}

	// после массива допускаются только пробельные символы
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after records array")
	}

	// разбираем поэлементно, чтобы в ошибке был индекс записи
	result := make([]model.Record, 0, len(raw))
	for i, item := range raw {
		var rec model.Record
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("record #%d: %w", i, err)
		}
		result = append(result, rec)
	}
	return result, nil
}
