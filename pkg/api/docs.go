// Package api provides REST API handlers for ReputationIndexor
// @title ReputationIndexor API
// @version 1.0
// @description REST API for querying owner reputation, domains and activity history indexed by ReputationIndexor
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/ReputationIndexor
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @basePath /api/v1
// @schemes http https
package api
