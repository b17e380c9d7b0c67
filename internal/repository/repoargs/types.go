package repoargs

type RepositoryName string

const (
	UserRepoName               RepositoryName = "user"
	CreditTransactionRepoName  RepositoryName = "credit_transaction"
	MessageLogRepoName         RepositoryName = "message_log"
	ResellerCommissionRepoName RepositoryName = "reseller_commission"
)
