package options

import "testing"

func TestDefaultsMatchTable(t *testing.T) {
	v := Defaults()
	if v.PricePerKm != 13 {
		t.Errorf("price_per_km: got %d want 13", v.PricePerKm)
	}
	if v.ServiceChargeDay != 500 {
		t.Errorf("service_charge_day: got %d want 500", v.ServiceChargeDay)
	}
	if v.ServiceChargeNight != 800 {
		t.Errorf("service_charge_night: got %d want 800", v.ServiceChargeNight)
	}
	if v.UseCash {
		t.Error("use_cash should default to false")
	}
	if !v.BypassCheckpoints {
		t.Error("bypass_checkpoints should default to true")
	}
	if v.CourierName != "Jeff" {
		t.Errorf("courier_name: got %q want Jeff", v.CourierName)
	}
}

func TestTableKeysUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range Table {
		if seen[e.Key] {
			t.Fatalf("duplicate option key %q", e.Key)
		}
		seen[e.Key] = true
	}
}

func TestStoreUpdateVisible(t *testing.T) {
	s := NewStore(Defaults())
	s.Update(func(v *Values) { v.UseCash = true })
	if !s.Get().UseCash {
		t.Fatal("update not visible through Get")
	}
}
