// Package tablero serves interactive dashboards over two record tables: a
// student roster and a register of criminal cases.
//
// Layout:
//
//	engine     in-memory frames, filters, aggregation, chart/table builders
//	schema     dimension/measure discovery and model-assisted refinement
//	dataset    CSV/XLSX loading, cleaning, the dataset registry, export
//	dashboard  widgets, widget state and the page builders
//	assistant  language-model modes (chat, agenda, study plan) and replies
//	render     chart images, markdown and terminal tables
//	server     HTTP API (gin) with Prometheus metrics
//	cmd/tablero the cobra CLI
//
// Pages are computed locally from the registry frames; only the assistant
// calls an external service.
package tablero
