package portal

import "encoding/json"

// DefaultPageSize is the number of rows requested when running a process.
const DefaultPageSize = 2000

// LoginRequest is the body of POST /token/.
type LoginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Organization string `json:"organization,omitempty"`
}

// tokenResponse is returned by both token endpoints. Refresh is omitted by
// /token/refresh/ unless the server rotates refresh tokens.
type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Customer is a customer organisation, listed by the portal as a client.
type Customer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Credential is a stored integration credential. Sensitive values are masked
// by the server as "***".
type Credential struct {
	ID                 int            `json:"id"`
	Name               string         `json:"name"`
	CredentialTypeName string         `json:"credential_type_name"`
	CredentialTypeID   int            `json:"credential_type_id"`
	Values             map[string]any `json:"values"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
}

// UserEnvironment is a client environment the user has access to.
type UserEnvironment struct {
	ID               int          `json:"id"`
	Client           int          `json:"client"`
	ClientName       string       `json:"client_name"`
	Environment      int          `json:"environment"`
	EnvironmentName  string       `json:"environment_name"`
	Name             string       `json:"name"`
	IsActive         bool         `json:"is_active"`
	Credentials      []Credential `json:"credentials"`
	CredentialsCount int          `json:"credentials_count"`
}

// EnvironmentsResponse is returned by GET /v1/user/environments.
type EnvironmentsResponse struct {
	Environments                    []UserEnvironment `json:"environments"`
	Count                           int               `json:"count"`
	CurrentEnvironmentIDs           []int             `json:"current_environment_ids"`
	CurrentEnvironmentClientID      *int              `json:"current_environment_client_id"`
	CurrentEnvironmentClientName    *string           `json:"current_environment_client_name"`
	CurrentEnvironmentTypeID        *int              `json:"current_environment_type_id"`
	CurrentEnvironmentTypeName      *string           `json:"current_environment_type_name"`
	CurrentEnvironmentCredentialIDs []int             `json:"current_environment_credential_ids"`
}

// CurrentEnvironment describes the environment currently selected for the user.
type CurrentEnvironment struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	ClientName      string `json:"client_name"`
	ClientID        int    `json:"client_id"`
	EnvironmentName string `json:"environment_name"`
	EnvironmentID   int    `json:"environment_id"`
	IsActive        bool   `json:"is_active"`
}

// EnvironmentDetailsResponse is returned by GET /v1/user/current-environment/details/.
type EnvironmentDetailsResponse struct {
	Environment      CurrentEnvironment `json:"environment"`
	Credentials      []Credential       `json:"credentials"`
	CredentialsCount int                `json:"credentials_count"`
}

// Process is a runnable data process for a client environment.
type Process struct {
	ID                    int                    `json:"id"`
	Name                  string                 `json:"name"`
	CredentialTypeName    string                 `json:"credential_type_name"`
	ExecutionModeName     string                 `json:"execution_mode_name"`
	DomainLogic           string                 `json:"domain_logic"`
	DefaultPayload        ProcessDefaultPayload  `json:"default_payload"`
	OutputSchemaExample   json.RawMessage        `json:"output_schema_example,omitempty"`
	OutputColumnsMetadata []OutputColumnMetadata `json:"output_columns_metadata"`
	InputSchemaExample    json.RawMessage        `json:"input_schema_example,omitempty"`
	CreatedAt             string                 `json:"created_at"`
	UpdatedAt             string                 `json:"updated_at"`
}

// OutputColumnMetadata describes one column of a process result.
type OutputColumnMetadata struct {
	Field      string `json:"field"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	Sortable   bool   `json:"sortable"`
	Filterable bool   `json:"filterable"`
	Hidden     bool   `json:"hidden,omitempty"`
	Display    string `json:"display,omitempty"`
}

// ProcessDefaultPayload is the server-provided template for running a process.
type ProcessDefaultPayload struct {
	Internal    InternalPayload   `json:"_internal"`
	ExternalAPI ExternalAPIConfig `json:"_external_api"`
	Metadata    ProcessMetadata   `json:"_metadata"`
}

// InternalPayload selects the client environment a process runs against.
type InternalPayload struct {
	ClientEnvironmentID *int `json:"client_environment_id"`
}

// ExternalAPIConfig is passed through to the upstream system.
type ExternalAPIConfig struct {
	Filters    []json.RawMessage `json:"filters"`
	Paging     Paging            `json:"paging"`
	Sorts      []json.RawMessage `json:"sorts,omitempty"`
	Groups     []json.RawMessage `json:"groups,omitempty"`
	Aggregates []json.RawMessage `json:"aggregates,omitempty"`
}

// Paging selects a page of results.
type Paging struct {
	PageSize   int `json:"pageSize"`
	PageNumber int `json:"pageNumber"`
}

// ProcessMetadata lists the filters and sorts a process accepts.
type ProcessMetadata struct {
	AvailableFilters []AvailableFilter `json:"available_filters"`
	AvailableSorts   []AvailableSort   `json:"available_sorts"`
	PagingConfig     PagingConfig      `json:"paging_config"`
}

// AvailableFilter describes one filter input of a process.
type AvailableFilter struct {
	Path         string       `json:"path"`
	Label        string       `json:"label"`
	Type         string       `json:"type"`
	FilterType   int          `json:"filter_type"`
	Required     bool         `json:"required"`
	ValuesSource ValuesSource `json:"values_source"`
}

// ValuesSource tells where a filter's allowed values come from.
type ValuesSource struct {
	Type         string          `json:"type"`
	Method       string          `json:"method"`
	Endpoint     string          `json:"endpoint"`
	DisplayField string          `json:"display_field"`
	ValueField   string          `json:"value_field"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// AvailableSort is a sortable field.
type AvailableSort struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// PagingConfig bounds the page size of a process.
type PagingConfig struct {
	MaxPageSize     int `json:"max_page_size"`
	DefaultPageSize int `json:"default_page_size"`
}

// ProcessFilter is one filter applied when running a process.
// The capitalised "Value" key is what the API expects.
type ProcessFilter struct {
	Type  int    `json:"type"`
	Path  string `json:"path"`
	Value any    `json:"Value"`
}

// processExecutionPayload is the body of POST /v1/processes/{id}/run/.
type processExecutionPayload struct {
	Internal struct {
		ClientEnvironmentID int `json:"client_environment_id"`
	} `json:"_internal"`
	ExternalAPI struct {
		Filters []ProcessFilter `json:"filters"`
		Paging  Paging          `json:"paging"`
	} `json:"_external_api"`
}

// ProcessExecutionResponse is the result of running a process.
type ProcessExecutionResponse struct {
	Message        string           `json:"message"`
	JobID          *int             `json:"job_id,omitempty"`
	ProcessName    string           `json:"process_name"`
	Environment    string           `json:"environment"`
	CredentialUsed string           `json:"credential_used"`
	Status         string           `json:"status"`
	Data           []map[string]any `json:"data,omitempty"`
}

// LookupResponse lists the allowed values of a filter.
type LookupResponse struct {
	LookupType string       `json:"lookup_type"`
	Count      int          `json:"count"`
	Items      []LookupItem `json:"items"`
}

// LookupItem is one allowed filter value.
type LookupItem struct {
	Value any             `json:"value"`
	Label string          `json:"label"`
	Data  json.RawMessage `json:"data,omitempty"`
}
