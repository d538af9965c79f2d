package controller

import (
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/common"
	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/ctxkey"
	"github.com/bedrock-gateway/bedrock-assumerole/common/helper"
	"github.com/bedrock-gateway/bedrock-assumerole/dto"
	"github.com/bedrock-gateway/bedrock-assumerole/middleware"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/assumerole"
	relaycontroller "github.com/bedrock-gateway/bedrock-assumerole/relay/controller"
)

// Bedrock serves the /api/bedrock routes.
type Bedrock struct {
	svc         *relaycontroller.Service
	credentials *assumerole.Provider
}

func NewBedrock(svc *relaycontroller.Service, credentials *assumerole.Provider) *Bedrock {
	return &Bedrock{svc: svc, credentials: credentials}
}

// bindJSON decodes and validates the request body into req.
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	if err := common.Validate.Struct(req); err != nil {
		return err
	}
	return nil
}

// ListModels returns the selectable models. With a profile mapping configured
// only the mapped models are listed.
func (b *Bedrock) ListModels(c *gin.Context) {
	profilesJSON := config.InferenceProfilesJSON
	if q, ok := c.GetQuery("inference_profiles_json"); ok {
		profilesJSON = q
	}

	options, err := aws.ModelOptionsFromJSON(profilesJSON)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    options,
		"default": aws.DefaultClaudeModel,
	})
}

// ResolveModel previews the effective model id for ?model=.
func (b *Bedrock) ResolveModel(c *gin.Context) {
	modelID := c.Query("model")
	if modelID == "" {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.New("missing required query parameter: model"))
		return
	}

	overrides := &dto.CredentialSettings{
		Region:                    c.Query("region"),
		InferenceProfileAccountID: c.Query("inference_profile_account_id"),
	}
	resp, err := relaycontroller.PreviewModel(overrides, modelID)
	if err != nil {
		middleware.AbortWithError(c, statusCode(err), err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Invoke runs an invoke batch.
func (b *Bedrock) Invoke(c *gin.Context) {
	var req dto.InvokeRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, err)
		return
	}

	c.Set(ctxkey.ItemCount, len(req.Items))
	if len(req.Items) == 1 {
		c.Set(ctxkey.ConfiguredModel, req.Items[0].ModelID)
	}

	resp, err := b.svc.ProcessBatch(gmw.Ctx(c), c.GetString(helper.RequestIdKey), &req)
	if err != nil {
		var itemErr *relaycontroller.ItemError
		if errors.As(err, &itemErr) {
			middleware.AbortWithError(c, statusCode(itemErr.Err), errors.Wrapf(itemErr.Err, "item %d", itemErr.Index))
			return
		}
		middleware.AbortWithError(c, statusCode(err), err)
		return
	}

	if len(resp.Results) == 1 && resp.Results[0].InvokeOutput != nil {
		c.Set(ctxkey.EffectiveModel, resp.Results[0].ModelID)
		c.Set(ctxkey.ModelFamily, resp.Results[0].Family)
	}
	c.JSON(http.StatusOK, resp)
}

// Chat runs one conversational turn.
func (b *Bedrock) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, err)
		return
	}
	c.Set(ctxkey.ConfiguredModel, req.ModelID)

	resp, err := b.svc.Chat(gmw.Ctx(c), c.GetString(helper.RequestIdKey), &req)
	if err != nil {
		middleware.AbortWithError(c, statusCode(err), err)
		return
	}

	c.Set(ctxkey.EffectiveModel, resp.ModelID)
	c.Set(ctxkey.ModelFamily, aws.FamilyClaude.String())
	c.JSON(http.StatusOK, resp)
}

// TestCredentials assumes the configured role without touching the cache.
// STS failures are reported in the body with success=false.
func (b *Bedrock) TestCredentials(c *gin.Context) {
	var req dto.CredentialTestRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, err)
			return
		}
	}

	target, err := relaycontroller.ResolveTarget(req.Credentials, config.AWSRoleSessionName)
	if err != nil {
		middleware.AbortWithError(c, statusCode(err), err)
		return
	}

	lg := gmw.GetLogger(c).With(
		zap.String("role_arn", target.Base.RoleArn),
		zap.String("access_key_id_prefix", assumerole.MaskKey(target.Base.AccessKeyID)))

	creds, err := b.credentials.AssumeRole(gmw.Ctx(c), target.Base)
	if err != nil {
		lg.Warn("credential test failed", zap.Error(err))
		c.JSON(http.StatusOK, dto.CredentialTestResponse{
			Success:         false,
			Message:         err.Error(),
			AccessKeyPrefix: assumerole.MaskKey(target.Base.AccessKeyID),
		})
		return
	}

	lg.Info("credential test succeeded", zap.Time("expiration", creds.Expiration))
	c.JSON(http.StatusOK, dto.CredentialTestResponse{
		Success:         true,
		Message:         "Assumed role " + target.Base.RoleArn,
		AccessKeyPrefix: assumerole.MaskKey(target.Base.AccessKeyID),
		Expiration:      creds.Expiration.UTC().Format(time.RFC3339),
	})
}
