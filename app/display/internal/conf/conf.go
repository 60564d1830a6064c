package conf

type Bootstrap struct {
	Server *Server
	Radar  *Radar
}

type Server struct {
	Http *HTTP
	Cron *Cron
}

type HTTP struct {
	Addr    string
	Timeout string
}

// Cron 定时执行完整流程，Spec 为空时不启用
type Cron struct {
	Spec      string `json:"spec"`
	Recipient string `json:"recipient"`
}

type Radar struct {
	Provider    *Provider    `json:"provider"`
	Llm         *LLM         `json:"llm"`
	Delivery    *Delivery    `json:"delivery"`
	Report      *Report      `json:"report"`
	CatalogPath string       `json:"catalog_path"`
	Log         *Log         `json:"log"`
	Concurrency *Concurrency `json:"concurrency"`
}

type Provider struct {
	Project  string `json:"project"`
	Location string `json:"location"`
}

type LLM struct {
	BaseUrl string `json:"base_url"`
	ApiKey  string `json:"api_key"`
	Model   string `json:"model"`
}

type Delivery struct {
	Provider  string `json:"provider"`
	ApiKey    string `json:"api_key"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
	ToEmail   string `json:"to_email"`
	Subject   string `json:"subject"`
	OutputDir string `json:"output_dir"`
	Smtp      *SMTP  `json:"smtp"`
}

type SMTP struct {
	Host     string `json:"host"`
	Port     int32  `json:"port"`
	Username string `json:"username"`
}

type Report struct {
	HotCategories         int32 `json:"hot_categories"`
	TechnologyPredictions int32 `json:"technology_predictions"`
	OpportunityAreas      int32 `json:"opportunity_areas"`
	SuccessStrategies     int32 `json:"success_strategies"`
}

type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type Concurrency struct {
	Qps int32 `json:"qps"`
	Rpm int32 `json:"rpm"`
}
