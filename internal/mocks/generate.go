package mocks

//go:generate mockery --name HandImporter --srcpkg github.com/Fulvio75/fpdb/internal/ingestion --output ./ingestion --outpkg ingestionmocks --with-expecter
//go:generate mockery --name Store --srcpkg github.com/Fulvio75/fpdb/internal/projection --output ./projection --outpkg projectionmocks --with-expecter
