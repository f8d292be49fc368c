package store

// Declare database key prefixes for ledger objects
const (
	PrefixBalance   = "balance:"
	PrefixAllowance = "allowance:"
	PrefixFrozen    = "frozen:"

	PrefixTx        = "tx:"
	PrefixArchiveTx = "archive_tx:"

	PrefixMeta         = "meta:"
	MetaKeyLedger      = PrefixMeta + "ledger"
	MetaKeyArchiveNode = PrefixMeta + "archive_node"
)
