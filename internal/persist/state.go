package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/onnwee/regions/internal/region"
)

// Key suffixes under the configured prefix.
const (
	KeyRegions  = "regions"
	KeyLayers   = "layers"
	KeySettings = "settings"
	KeyHistory  = "history"
)

type historyRecord struct {
	Entries []region.Entry `json:"entries"`
	Index   int            `json:"historyIndex"`
}

// SaveState writes st under prefix as four keys: regions, layers, settings
// and history.
func SaveState(ctx context.Context, kv KV, prefix string, st region.State) error {
	values := []struct {
		key string
		v   any
	}{
		{KeyRegions, st.Regions},
		{KeyLayers, st.Layers},
		{KeySettings, st.Settings},
		{KeyHistory, historyRecord{Entries: st.History, Index: st.HistoryIndex}},
	}
	for _, item := range values {
		b, err := json.Marshal(item.v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", item.key, err)
		}
		if err := kv.Save(ctx, prefix+item.key, b); err != nil {
			return err
		}
	}
	return nil
}

// LoadState reads state saved by SaveState. found is false when nothing
// was saved under prefix. Missing layers, settings or history keys are
// treated as empty.
func LoadState(ctx context.Context, kv KV, prefix string) (st region.State, found bool, err error) {
	st.HistoryIndex = -1

	b, err := kv.Load(ctx, prefix+KeyRegions)
	if errors.Is(err, ErrNotFound) {
		return st, false, nil
	}
	if err != nil {
		return st, false, err
	}
	if err := json.Unmarshal(b, &st.Regions); err != nil {
		return st, false, fmt.Errorf("failed to decode %s: %w", KeyRegions, err)
	}

	if err := loadOptional(ctx, kv, prefix+KeyLayers, &st.Layers); err != nil {
		return st, false, err
	}
	if err := loadOptional(ctx, kv, prefix+KeySettings, &st.Settings); err != nil {
		return st, false, err
	}
	var h historyRecord
	h.Index = -1
	if err := loadOptional(ctx, kv, prefix+KeyHistory, &h); err != nil {
		return st, false, err
	}
	st.History, st.HistoryIndex = h.Entries, h.Index
	return st, true, nil
}

func loadOptional(ctx context.Context, kv KV, key string, v any) error {
	b, err := kv.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}
