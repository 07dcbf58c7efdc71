package pipeline

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/nishad/gdcharvest/internal/gdc"
)

// runLog is the JSON audit record written next to each dataset's
// artifacts. It captures when the harvest ran, with which parameters,
// and every metadata query issued along the way.
type runLog struct {
	Timestamp time.Time         `json:"timestamp"`
	Dataset   string            `json:"dataset"`
	Filetypes []string          `json:"filetypes"`
	Mode      string            `json:"download_mode"`
	Queries   []gdc.QueryRecord `json:"queries"`
}

func (p *Pipeline) writeRunLog(dir, dataset string) error {
	full := p.client.QueryLog()
	queries := full[p.loggedQueries:]
	p.loggedQueries = len(full)

	if p.catalog != nil {
		for _, q := range queries {
			filters, _ := json.Marshal(q.Filters)
			if err := p.catalog.RecordQuery(q.Endpoint, string(filters), q.ReturnedCount); err != nil {
				log.Printf("Warning: catalog query record: %v", err)
			}
		}
	}

	rl := runLog{
		Timestamp: time.Now().UTC(),
		Dataset:   dataset,
		Filetypes: p.opts.Filetypes,
		Mode:      string(p.opts.Mode),
		Queries:   queries,
	}
	data, err := json.MarshalIndent(rl, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "run_log.json"), data, 0644)
}
