// Package ctxkey names the values handlers store on the gin context.
package ctxkey

const (
	// ConfiguredModel is the model id the caller asked for.
	ConfiguredModel = "configured_model"
	// EffectiveModel is the id actually sent to Bedrock, possibly a profile ARN.
	EffectiveModel = "effective_model"
	// ModelFamily is the family detected from ConfiguredModel.
	ModelFamily = "model_family"
	// ItemCount is the number of items in an invoke batch.
	ItemCount = "item_count"
	// TokenAuthenticated is set once the bearer token matched.
	TokenAuthenticated = "token_authenticated"
)
