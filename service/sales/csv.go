package sales

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header lists the sales CSV columns in file order.
var Header = []string{"id", "customer_name", "product", "amount", "quantity", "region", "category", "timestamp"}

// Decode reads records from a CSV document with a header row. Columns are
// matched by name, so their order may differ from Header.
func Decode(reader io.Reader) ([]*Record, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	for _, name := range Header {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var ret []*Record
	for line := 2; ; line++ {
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			return ret, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		column := func(name string) string {
			if i := index[name]; i < len(row) {
				return row[i]
			}
			return ""
		}
		record := &Record{
			ID:           column("id"),
			CustomerName: column("customer_name"),
			Product:      column("product"),
			Region:       column("region"),
			Category:     column("category"),
			Timestamp:    column("timestamp"),
		}
		if record.Amount, err = strconv.Atoi(strings.TrimSpace(column("amount"))); err != nil {
			return nil, fmt.Errorf("line %d: invalid amount: %w", line, err)
		}
		if record.Quantity, err = strconv.Atoi(strings.TrimSpace(column("quantity"))); err != nil {
			return nil, fmt.Errorf("line %d: invalid quantity: %w", line, err)
		}
		ret = append(ret, record)
	}
}

// Encode writes records with a header row.
func Encode(writer io.Writer, records []*Record) error {
	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.Write(Header); err != nil {
		return err
	}
	for _, record := range records {
		row := []string{
			record.ID,
			record.CustomerName,
			record.Product,
			strconv.Itoa(record.Amount),
			strconv.Itoa(record.Quantity),
			record.Region,
			record.Category,
			record.Timestamp,
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
