package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
)

func f(v float64) *float64 { return &v }

func TestRecordAcceptsNestedAndFlatRatios(t *testing.T) {
	tests := []struct {
		name      string
		decode    func([]byte, *Record) error
		payload   string
		wantLabor float64
		wantFood  float64
	}{
		{
			name:      "JSON nested",
			decode:    func(b []byte, r *Record) error { return json.Unmarshal(b, r) },
			payload:   `{"dealId":"d1","beds":100,"expenseRatios":{"laborPct":58,"foodCostPerDay":11.25}}`,
			wantLabor: 58,
			wantFood:  11.25,
		},
		{
			name:      "JSON flat wins",
			decode:    func(b []byte, r *Record) error { return json.Unmarshal(b, r) },
			payload:   `{"dealId":"d1","laborPct":60,"expenseRatios":{"laborPct":58,"foodCostPerDay":11.25}}`,
			wantLabor: 60,
			wantFood:  11.25,
		},
		{
			name:      "YAML nested",
			decode:    func(b []byte, r *Record) error { return yaml.Unmarshal(b, r) },
			payload:   "dealId: d1\nexpenseRatios:\n  laborPct: 58\n  foodCostPerDay: 11.25\n",
			wantLabor: 58,
			wantFood:  11.25,
		},
		{
			name:      "YAML flat",
			decode:    func(b []byte, r *Record) error { return yaml.Unmarshal(b, r) },
			payload:   "dealId: d1\nlaborPct: 61\nfoodCostPerDay: 9\n",
			wantLabor: 61,
			wantFood:  9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			if err := tt.decode([]byte(tt.payload), &r); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if r.DealID != "d1" {
				t.Fatalf("DealID = %q", r.DealID)
			}
			if r.LaborPct == nil || *r.LaborPct != tt.wantLabor {
				t.Fatalf("LaborPct = %v, expected %v", r.LaborPct, tt.wantLabor)
			}
			if r.FoodCostPerDay == nil || *r.FoodCostPerDay != tt.wantFood {
				t.Fatalf("FoodCostPerDay = %v, expected %v", r.FoodCostPerDay, tt.wantFood)
			}
			if r.InsurancePct != nil {
				t.Fatalf("InsurancePct = %v, expected nil", *r.InsurancePct)
			}
		})
	}
}

func TestProjectionsDoNotAlias(t *testing.T) {
	r := Record{DealID: "d1", Beds: f(100), OccupancyPct: f(80), ExpenseRatios: ExpenseRatios{LaborPct: f(55)}}
	in := r.Inputs()
	*in.Beds = 1
	*in.LaborPct = 1
	if *r.Beds != 100 || *r.LaborPct != 55 {
		t.Fatalf("Inputs() aliased the record")
	}
	if *in.OccupancyPct != 80 {
		t.Fatalf("OccupancyPct = %v", *in.OccupancyPct)
	}
	*in.OccupancyPct = 1
	if *r.OccupancyPct != 80 {
		t.Fatalf("Inputs() aliased OccupancyPct")
	}
}

func TestBuildReport(t *testing.T) {
	r := Record{
		DealID:        "d1",
		FacilityName:  "Cedar Ridge",
		Beds:          f(100),
		Revenue:       f(12000000),
		EBITDA:        f(1200000),
		EBITDAR:       f(2400000),
		NOI:           f(900000),
		PurchasePrice: f(15000000),
		AnnualRent:    f(1200000),
	}
	report := BuildReport(r)

	c := report.Computed
	if *c.PricePerBed != 150000 || *c.RevenueMultiple != 1.25 || *c.EbitdaMultiple != 12.5 {
		t.Fatalf("Computed = %+v", c)
	}
	if *c.CapRate != 6 || *c.EbitdaMargin != 10 || *c.RentCoverage != 2 {
		t.Fatalf("Computed = %+v", c)
	}
	if report.Summary.PurchasePriceDisplay != "$15,000,000.00" {
		t.Fatalf("PurchasePriceDisplay = %q", report.Summary.PurchasePriceDisplay)
	}
	if len(report.DataQuality.MissingFields) != 9 {
		t.Fatalf("MissingFields = %v, expected the nine operating ratios", report.DataQuality.MissingFields)
	}
	if len(report.DataQuality.Warnings) != 0 {
		t.Fatalf("Warnings = %v", report.DataQuality.Warnings)
	}
}

func TestBuildReportToleratesMissingValues(t *testing.T) {
	report := BuildReport(Record{DealID: "d2", EBITDA: f(500), EBITDAR: f(100), NOI: f(-1), OccupancyPct: f(104)})
	c := report.Computed
	if c.PricePerBed != nil || c.CapRate != nil || c.EbitdaMargin != nil || c.RentCoverage != nil {
		t.Fatalf("Computed = %+v, expected all nil", c)
	}
	if report.Summary.PurchasePriceDisplay != "N/A" {
		t.Fatalf("PurchasePriceDisplay = %q", report.Summary.PurchasePriceDisplay)
	}
	if len(report.DataQuality.Warnings) != 3 {
		t.Fatalf("Warnings = %v, expected three", report.DataQuality.Warnings)
	}

	body, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v, ok := decoded["inputs"]["beds"]; !ok || v != nil {
		t.Fatalf("inputs.beds = %v (present %v), expected null", v, ok)
	}
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource(Record{DealID: "d1", Beds: f(10)})
	got, err := src.Fetch(context.Background(), "d1")
	if err != nil || *got.Beds != 10 {
		t.Fatalf("Fetch() = %+v, %v", got, err)
	}
	*got.Beds = 99
	again, _ := src.Fetch(context.Background(), "d1")
	if *again.Beds != 10 {
		t.Fatalf("Fetch() returned an aliased record")
	}
	if _, err := src.Fetch(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fetch(missing) error = %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	content := "facilityName: Oak Manor\nbeds: 120\nrevenue: 9000000\nexpenseRatios:\n  laborPct: 57\n"
	if err := os.WriteFile(filepath.Join(dir, "deal-7.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("beds: [1,"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(zap.NewNop(), dir)
	ctx := context.Background()

	r, err := src.Fetch(ctx, "deal-7")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if r.DealID != "deal-7" || r.FacilityName != "Oak Manor" || *r.Beds != 120 || *r.LaborPct != 57 {
		t.Fatalf("Fetch() = %+v", r)
	}

	if _, err := src.Fetch(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fetch(nope) error = %v", err)
	}
	if _, err := src.Fetch(ctx, "broken"); !fault.Is(err, fault.KindInvalidPayload) {
		t.Fatalf("Fetch(broken) error = %v, expected invalid payload", err)
	}
	if _, err := src.Fetch(ctx, "../etc/passwd"); !fault.Is(err, fault.KindValidation) {
		t.Fatalf("Fetch(traversal) error = %v, expected validation", err)
	}
}
