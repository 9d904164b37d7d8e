package common

const (
	ComponentFeed        = "feed"
	ComponentIngest      = "ingest"
	ComponentStore       = "store"
	ComponentAPI         = "api"
	ComponentMaintenance = "maintenance"
)

var AllComponents = map[string]struct{}{
	ComponentFeed:        {},
	ComponentIngest:      {},
	ComponentStore:       {},
	ComponentAPI:         {},
	ComponentMaintenance: {},
}
