package sales

import (
	"fmt"
	"math/rand"
	"time"
)

// Options controls demo data generation.
type Options struct {
	Records   int
	HighValue int
	Date      string
	Seed      int64
}

// DefaultOptions returns the demo defaults: 10,000 records, 50 of them high value.
func DefaultOptions() Options {
	return Options{Records: 10000, HighValue: 50, Date: "2025-01-15"}
}

type product struct {
	name     string
	min, max int
	category string
}

var products = []product{
	{"高級ドライヤー", 30000, 80000, "beauty"},
	{"美容液セット", 15000, 50000, "beauty"},
	{"シャンプー詰め合わせ", 5000, 20000, "haircare"},
	{"電動歯ブラシ", 10000, 40000, "health"},
	{"空気清浄機", 30000, 80000, "appliance"},
	{"ヘアアイロン", 15000, 45000, "beauty"},
	{"美顔器", 20000, 60000, "beauty"},
	{"電気シェーバー", 10000, 35000, "health"},
	{"加湿器", 8000, 30000, "appliance"},
	{"マッサージガン", 15000, 50000, "health"},
}

var highValueProducts = []product{
	{name: "業務用エステ機器", category: "equipment"},
	{name: "高級マッサージチェア", category: "furniture"},
	{name: "業務用美容機器セット", category: "equipment"},
	{name: "サロン向け大型什器", category: "furniture"},
}

var regions = []string{"東京", "大阪", "名古屋", "福岡", "札幌", "仙台", "広島", "横浜"}

const (
	highValueMin = HighValueThreshold
	highValueMax = 5000000
)

// Generate produces demo sales. High value amounts fall in [1,000,000, 5,000,000];
// regular ones stay below the approval threshold.
func Generate(options Options) ([]*Record, error) {
	defaults := DefaultOptions()
	if options.Date == "" {
		options.Date = defaults.Date
	}
	base, err := time.Parse(DateLayout, options.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", options.Date, err)
	}
	if options.Records < 0 || options.HighValue < 0 {
		return nil, fmt.Errorf("record counts must not be negative")
	}
	if options.HighValue > options.Records {
		return nil, fmt.Errorf("high value count %d exceeds record count %d", options.HighValue, options.Records)
	}
	seed := options.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	highValue := make(map[int]bool, options.HighValue)
	for _, i := range rng.Perm(options.Records)[:options.HighValue] {
		highValue[i] = true
	}
	ret := make([]*Record, options.Records)
	for i := range ret {
		record := &Record{
			ID:           fmt.Sprintf("%05d", i+1),
			CustomerName: fmt.Sprintf("会社%c%d", rune('A'+i%26), i/26+1),
			Timestamp:    base.Add(time.Duration(i*8) * time.Second).Format("2006-01-02T15:04:05"),
		}
		if highValue[i] {
			p := highValueProducts[rng.Intn(len(highValueProducts))]
			record.Product, record.Category = p.name, p.category
			record.Amount = between(rng, highValueMin, highValueMax)
		} else {
			p := products[rng.Intn(len(products))]
			record.Product, record.Category = p.name, p.category
			record.Amount = between(rng, p.min, p.max)
		}
		record.Quantity = between(rng, 1, 10)
		record.Region = regions[rng.Intn(len(regions))]
		ret[i] = record
	}
	return ret, nil
}

func between(rng *rand.Rand, min, max int) int {
	return min + rng.Intn(max-min+1)
}
