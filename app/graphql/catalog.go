// Package graphql exposes the public catalogue as a read-only GraphQL API,
// an alternative to the REST endpoints for storefront frontends that prefer
// to shape their own queries.
package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/app/repositories"
	gql "github.com/feirahub/feira/pkg/graphql"
)

// resolveShopID and resolveProductID dig the primary key out of the embedded
// gorm.Model, which the default resolver cannot see through.
func resolveShopID(p graphql.ResolveParams) (interface{}, error) {
	if s, ok := p.Source.(models.Shop); ok {
		return int(s.ID), nil
	}
	return nil, nil
}

func resolveProductID(p graphql.ResolveParams) (interface{}, error) {
	if pr, ok := p.Source.(models.Product); ok {
		return int(pr.ID), nil
	}
	return nil, nil
}

var shopType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Shop",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.Int, Resolve: resolveShopID},
		"name":        &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"address":     &graphql.Field{Type: graphql.String},
		"open":        &graphql.Field{Type: graphql.Boolean},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.Int, Resolve: resolveProductID},
		"shop_id":     &graphql.Field{Type: graphql.Int},
		"name":        &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"price":       &graphql.Field{Type: graphql.Float},
		"stock":       &graphql.Field{Type: graphql.Int},
		"sku":         &graphql.Field{Type: graphql.String},
		"image_url":   &graphql.Field{Type: graphql.String},
	},
})

// NewCatalogSchema builds the read-only catalogue schema backed by the shop
// and product repositories.
func NewCatalogSchema(shops *repositories.ShopRepository, products *repositories.ProductRepository) (graphql.Schema, error) {
	rootQuery := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"shops": &graphql.Field{
				Type:        graphql.NewList(shopType),
				Description: "Every open shop.",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return shops.AllOpen()
				},
			},
			"shop": &graphql.Field{
				Type: shopType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, ok := p.Args["id"].(int)
					if !ok || id < 0 {
						return nil, fmt.Errorf("invalid shop id")
					}
					return shops.FindByID(uint(id))
				},
			},
			"products": &graphql.Field{
				Type:        graphql.NewList(productType),
				Description: "One shop's catalogue.",
				Args: graphql.FieldConfigArgument{
					"shop_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, ok := p.Args["shop_id"].(int)
					if !ok || id < 0 {
						return nil, fmt.Errorf("invalid shop id")
					}
					return products.ByShop(uint(id))
				},
			},
		},
	})

	return gql.NewSchema(rootQuery)
}
