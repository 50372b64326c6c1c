package catalog

import (
	"encoding/json"
	"fmt"
)

// DecodeRecords parses a JSON array returned by a bulk endpoint into typed records
func DecodeRecords(rt ResourceType, body []byte) ([]Record, error) {
	switch rt {
	case TypeItems:
		return decodeAs[Item](body)
	case TypeRecipes:
		return decodeAs[Recipe](body)
	case TypeItemStats:
		return decodeAs[ItemStats](body)
	case TypePrices:
		return decodeAs[PriceQuote](body)
	default:
		return nil, fmt.Errorf("unknown resource type: %s", rt)
	}
}

// DecodeRecord parses a single JSON object of the given type
func DecodeRecord(rt ResourceType, body []byte) (Record, error) {
	records, err := DecodeRecords(rt, append(append([]byte{'['}, body...), ']'))
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("expected one %s record, got %d", rt, len(records))
	}
	return records[0], nil
}

type recordPtr[T any] interface {
	*T
	Record
}

func decodeAs[T any, P recordPtr[T]](body []byte) ([]Record, error) {
	var values []T
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(values))
	for i := range values {
		rec := P(&values[i])
		if rec.RecordID() <= 0 {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
