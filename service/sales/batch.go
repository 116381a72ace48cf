package sales

// Batches splits items into consecutive slices of at most size elements.
func Batches[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{items}
	}
	ret := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		ret = append(ret, items[i:end])
	}
	return ret
}

// HighValueIDs returns ids of records with an amount at or above threshold,
// in record order.
func HighValueIDs(records []*ProcessedRecord, threshold int) []string {
	ret := []string{}
	for _, record := range records {
		if record.Amount >= threshold {
			ret = append(ret, record.ID)
		}
	}
	return ret
}

// Partition splits records into approved and rejected. A record is rejected
// only when it is high value and its id is not among approvedIDs.
func Partition(records []*ProcessedRecord, highValueIDs, approvedIDs []string) (approved, rejected []*ProcessedRecord) {
	highValue := toSet(highValueIDs)
	accepted := toSet(approvedIDs)
	approved = []*ProcessedRecord{}
	rejected = []*ProcessedRecord{}
	for _, record := range records {
		_, isHigh := highValue[record.ID]
		_, isApproved := accepted[record.ID]
		if isHigh && !isApproved {
			rejected = append(rejected, record)
			continue
		}
		approved = append(approved, record)
	}
	return approved, rejected
}

func toSet(ids []string) map[string]struct{} {
	ret := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		ret[id] = struct{}{}
	}
	return ret
}
