// Package graphql retains a secondary, admin-gated exploratory query
// surface over events/clusters/dossiers, adapted from the teacher's
// internal/graphql/graphql.go schema-building style (graphql.NewObject +
// resolver closures). The REST API in internal/httpapi is the spec's
// required primary interface; this surface exists for ad-hoc operator
// queries the fixed REST route matrix doesn't anticipate (see DESIGN.md).
package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/harrowgate/sitrep/internal/store"
)

var eventType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Event",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.String},
		"title":           &graphql.Field{Type: graphql.String},
		"summary":         &graphql.Field{Type: graphql.String},
		"category":        &graphql.Field{Type: graphql.String},
		"sentiment":       &graphql.Field{Type: graphql.String},
		"priority_score":  &graphql.Field{Type: graphql.Float},
		"published_at":    &graphql.Field{Type: graphql.DateTime},
	},
})

var clusterType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Cluster",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.String},
		"title":           &graphql.Field{Type: graphql.String},
		"member_count":    &graphql.Field{Type: graphql.Int},
		"top_priority":    &graphql.Field{Type: graphql.Float},
		"stability_trend": &graphql.Field{Type: graphql.String},
	},
})

var dossierType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Dossier",
	Fields: graphql.Fields{
		"id":            &graphql.Field{Type: graphql.String},
		"name":          &graphql.Field{Type: graphql.String},
		"subject_type":  &graphql.Field{Type: graphql.String},
		"event_count":   &graphql.Field{Type: graphql.Int},
		"count_7d":      &graphql.Field{Type: graphql.Int},
		"count_30d":     &graphql.Field{Type: graphql.Int},
	},
})

// DataSource is the subset of store.Store the explorer schema reads from,
// kept as an interface so schema construction doesn't couple to every
// store method. *store.Store satisfies this directly.
type DataSource interface {
	ListEvents(ctx context.Context, f store.EventFilter) ([]models.Event, error)
	ListClusters(ctx context.Context, limit int) ([]models.Cluster, error)
	ListDossiers(ctx context.Context, orgID string) ([]models.Dossier, error)
}

// NewHandler builds the graphql-go HTTP handler wired to ds. Mount it
// behind an admin-key check, as cmd/sitrep-server/main.go does — this package does not
// enforce auth itself, mirroring the teacher's graphql.go which also left
// transport-level concerns to main.go.
func NewHandler(ds DataSource) *handler.Handler {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"events": &graphql.Field{
				Type: graphql.NewList(eventType),
				Args: graphql.FieldConfigArgument{
					"minPriority": &graphql.ArgumentConfig{Type: graphql.Float},
					"limit":       &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f := store.EventFilter{}
					if v, ok := p.Args["minPriority"].(float64); ok {
						f.MinPriority = v
					}
					if v, ok := p.Args["limit"].(int); ok {
						f.Limit = v
					}
					return ds.ListEvents(p.Context, f)
				},
			},
			"clusters": &graphql.Field{
				Type: graphql.NewList(clusterType),
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := 50
					if v, ok := p.Args["limit"].(int); ok {
						limit = v
					}
					return ds.ListClusters(p.Context, limit)
				},
			},
			"dossiers": &graphql.Field{
				Type: graphql.NewList(dossierType),
				Args: graphql.FieldConfigArgument{
					"orgId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					orgID, _ := p.Args["orgId"].(string)
					return ds.ListDossiers(p.Context, orgID)
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		panic(err)
	}
	return handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: false,
	})
}
