package providers

import (
	"github.com/smallbiznis/royalty/internal/providers/email"
	"github.com/smallbiznis/royalty/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
