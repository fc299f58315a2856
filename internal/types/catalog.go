package types

// Catalog is the read-only view of one mirrored repository channel: the
// newest available package per (name, arch) key. It is produced by a
// CatalogPort adapter from repository metadata the engine does not
// otherwise parse.
type Catalog map[PackageKey]PackageRecord

// ChannelCatalogs maps a channel name (e.g. "baseos", "appstream") to
// its catalog for one profile/arch pair.
type ChannelCatalogs map[string]Catalog
