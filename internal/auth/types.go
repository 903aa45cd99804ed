// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

// Package auth defines the OAuth wire types exchanged by the middleware endpoints.
package auth

// Grant types accepted by dynamic client registration.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeRefreshToken      = "refresh_token"
)

// DefaultTokenEndpointAuthMethod is applied when a registration omits token_endpoint_auth_method.
const DefaultTokenEndpointAuthMethod = "client_secret_basic"

// RegistrationRequest is an RFC 7591 dynamic client registration request.
// Optional string fields are pointers so that an absent field and an empty one
// validate differently.
type RegistrationRequest struct {
	ClientName              string   `json:"client_name" validate:"required,min=1"`
	ClientURI               *string  `json:"client_uri,omitempty" validate:"omitempty,url"`
	LogoURI                 *string  `json:"logo_uri,omitempty" validate:"omitempty,url"`
	Scope                   *string  `json:"scope,omitempty" validate:"omitempty,min=1"`
	GrantTypes              []string `json:"grant_types" validate:"required,min=1,dive,oneof=authorization_code client_credentials refresh_token"`
	ResponseTypes           []string `json:"response_types,omitempty" validate:"omitempty,dive,oneof=code token"`
	TokenEndpointAuthMethod *string  `json:"token_endpoint_auth_method,omitempty" validate:"omitempty,oneof=client_secret_basic client_secret_post none"`
	RedirectURIs            []string `json:"redirect_uris" validate:"required,min=1,dive,url"`
	Contacts                []string `json:"contacts,omitempty" validate:"omitempty,dive,email"`
	PolicyURI               *string  `json:"policy_uri,omitempty" validate:"omitempty,url"`
	TermsOfServiceURI       *string  `json:"terms_of_service_uri,omitempty" validate:"omitempty,url"`
	JwksURI                 *string  `json:"jwks_uri,omitempty" validate:"omitempty,url"`
	SoftwareID              *string  `json:"software_id,omitempty"`
	SoftwareVersion         *string  `json:"software_version,omitempty"`
}

// RegistrationResponse is an RFC 7591 client information response.
type RegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientSecretExpiresAt   int64    `json:"client_secret_expires_at"` // 0 means the secret never expires
	RegistrationAccessToken string   `json:"registration_access_token"`
	RegistrationClientURI   string   `json:"registration_client_uri"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	Scope                   string   `json:"scope"`
	ClientName              string   `json:"client_name"`
	ClientURI               *string  `json:"client_uri,omitempty"`
	LogoURI                 *string  `json:"logo_uri,omitempty"`
	Contacts                []string `json:"contacts,omitempty"`
	PolicyURI               *string  `json:"policy_uri,omitempty"`
	TermsOfServiceURI       *string  `json:"terms_of_service_uri,omitempty"`
	JwksURI                 *string  `json:"jwks_uri,omitempty"`
	SoftwareID              *string  `json:"software_id,omitempty"`
	SoftwareVersion         *string  `json:"software_version,omitempty"`
}

// AuthorizationServerMetadata is the discovery document served at
// /.well-known/oauth-authorization-server (RFC 8414 plus OpenID Connect
// discovery fields).
type AuthorizationServerMetadata struct {
	Issuer                                     string   `json:"issuer"`
	AuthorizationEndpoint                      string   `json:"authorization_endpoint"`
	TokenEndpoint                              string   `json:"token_endpoint"`
	UserinfoEndpoint                           string   `json:"userinfo_endpoint"`
	JwksURI                                    string   `json:"jwks_uri"`
	GrantTypesSupported                        []string `json:"grant_types_supported"`
	ResponseTypesSupported                     []string `json:"response_types_supported"`
	ScopesSupported                            []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported          []string `json:"token_endpoint_auth_methods_supported"`
	SubjectTypesSupported                      []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported           []string `json:"id_token_signing_alg_values_supported"`
	IDTokenEncryptionAlgValuesSupported        []string `json:"id_token_encryption_alg_values_supported"`
	IDTokenEncryptionEncValuesSupported        []string `json:"id_token_encryption_enc_values_supported"`
	UserinfoSigningAlgValuesSupported          []string `json:"userinfo_signing_alg_values_supported"`
	UserinfoEncryptionAlgValuesSupported       []string `json:"userinfo_encryption_alg_values_supported"`
	UserinfoEncryptionEncValuesSupported       []string `json:"userinfo_encryption_enc_values_supported"`
	RequestObjectSigningAlgValuesSupported     []string `json:"request_object_signing_alg_values_supported"`
	RequestObjectEncryptionAlgValuesSupported  []string `json:"request_object_encryption_alg_values_supported"`
	RequestObjectEncryptionEncValuesSupported  []string `json:"request_object_encryption_enc_values_supported"`
	ClaimTypesSupported                        []string `json:"claim_types_supported"`
	ClaimsSupported                            []string `json:"claims_supported"`
	ServiceDocumentation                       string   `json:"service_documentation"`
	UILocalesSupported                         []string `json:"ui_locales_supported"`
	ClaimsLocalesSupported                     []string `json:"claims_locales_supported"`
	PolicyURI                                  string   `json:"policy_uri"`
	TosURI                                     string   `json:"tos_uri"`
	CodeChallengeMethodsSupported              []string `json:"code_challenge_methods_supported"`
	IntrospectionEndpoint                      string   `json:"introspection_endpoint"`
	RevocationEndpoint                         string   `json:"revocation_endpoint"`
	DeviceAuthorizationEndpoint                string   `json:"device_authorization_endpoint"`
	PushedAuthorizationRequestEndpoint         string   `json:"pushed_authorization_request_endpoint"`
	EndSessionEndpoint                         string   `json:"end_session_endpoint"`
	BackchannelLogoutEndpoint                  string   `json:"backchannel_logout_endpoint"`
	FrontchannelLogoutEndpoint                 string   `json:"frontchannel_logout_endpoint"`
	BackchannelLogoutSessionSupported          bool     `json:"backchannel_logout_session_supported"`
	FrontchannelLogoutSessionSupported         bool     `json:"frontchannel_logout_session_supported"`
	RegistrationEndpoint                       string   `json:"registration_endpoint"`
	TokenEndpointAuthSigningAlgValuesSupported []string `json:"token_endpoint_auth_signing_alg_values_supported"`
	DisplayValuesSupported                     []string `json:"display_values_supported"`
	ClaimsParameterSupported                   bool     `json:"claims_parameter_supported"`
	RequestParameterSupported                  bool     `json:"request_parameter_supported"`
	RequestURIParameterSupported               bool     `json:"request_uri_parameter_supported"`
	RequireRequestURIRegistration              bool     `json:"require_request_uri_registration"`
	OPPolicyURI                                string   `json:"op_policy_uri"`
	OPTosURI                                   string   `json:"op_tos_uri"`
}

// OAuthProtectedResourceMetadata defines RFC 9728 OAuth Protected Resource metadata
type OAuthProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`                           // Resource identifier URI
	AuthorizationServers   []string `json:"authorization_servers"`              // Authorization server issuers supporting this resource
	ScopesSupported        []string `json:"scopes_supported,omitempty"`         // Supported scopes
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"` // Supported bearer presentation methods
	ResourceName           *string  `json:"resource_name,omitempty"`            // Human friendly resource name
	ResourceDocumentation  *string  `json:"resource_documentation,omitempty"`   // Documentation URL
}

// AuthCallParams are the authorize query parameters handed to a custom
// authorization endpoint.
type AuthCallParams struct {
	ResponseType string `json:"responseType"`
	ClientID     string `json:"clientId"`
	RedirectURI  string `json:"redirectUri"`
	Scope        string `json:"scope"`
	State        string `json:"state"`
}

// TokenCallParams are the token request form fields handed to a custom token
// exchange. ClientSecret and CodeVerifier are nil when the form omits them.
type TokenCallParams struct {
	Code         string  `json:"code"`
	GrantType    string  `json:"grantType"`
	ClientID     string  `json:"clientId"`
	ClientSecret *string `json:"clientSecret,omitempty"`
	CodeVerifier *string `json:"codeVerifier,omitempty"`
}
