package mapping

// DefaultContactRole is the VALUE_TYPE used when wrapping scalars into
// multi-value CRM fields
const DefaultContactRole = "WORK"

// DefaultPhonePrefix is prepended to phone numbers without a country code
const DefaultPhonePrefix = "+506"

// DefaultStatusToStage maps store order statuses to CRM deal stages
func DefaultStatusToStage() map[string]string {
	return map[string]string{
		"pending":    "NEW",
		"processing": "EXECUTING",
		"on-hold":    "PREPAYMENT_INVOICE",
		"completed":  "WON",
		"cancelled":  "LOSE",
		"refunded":   "LOSE",
		"failed":     "LOSE",
	}
}

// DefaultStageToStatus maps CRM deal stages to store order statuses
func DefaultStageToStatus() map[string]string {
	return map[string]string{
		"NEW":                "pending",
		"PREPARATION":        "processing",
		"EXECUTING":          "processing",
		"PREPAYMENT_INVOICE": "on-hold",
		"WON":                "completed",
		"LOSE":               "cancelled",
		"APOLOGY":            "refunded",
	}
}

// DefaultCountryNames maps ISO 3166-1 alpha-2 codes to display names.
// Unmapped codes pass through unchanged.
func DefaultCountryNames() map[string]string {
	return map[string]string{
		"CR": "Costa Rica",
		"US": "United States",
		"MX": "Mexico",
		"ES": "Spain",
		"PA": "Panama",
		"NI": "Nicaragua",
		"GT": "Guatemala",
		"CO": "Colombia",
		"AR": "Argentina",
		"CL": "Chile",
		"PE": "Peru",
		"DE": "Germany",
		"FR": "France",
		"GB": "United Kingdom",
		"CA": "Canada",
	}
}

// DefaultTable is the built-in directional mapping table
func DefaultTable() Table {
	return Table{
		EntityDeal: {
			ToRemote: {
				"title":    {Field: "TITLE", Container: ContainerScalar},
				"total":    {Field: "OPPORTUNITY", Container: ContainerScalar, Normalize: NormalizeCurrency},
				"currency": {Field: "CURRENCY_ID", Container: ContainerScalar},
				"status":   {Field: "STAGE_ID", Container: ContainerScalar, Normalize: NormalizeStatus},
			},
			FromRemote: {
				"TITLE":       {Field: "title", Container: ContainerScalar},
				"OPPORTUNITY": {Field: "total", Container: ContainerScalar, Normalize: NormalizeCurrency},
				"CURRENCY_ID": {Field: "currency", Container: ContainerScalar},
				"STAGE_ID":    {Field: "status", Container: ContainerScalar, Normalize: NormalizeStatus},
				"COMMENTS":    {Field: "note", Container: ContainerScalar},
			},
		},
		EntityContact: {
			ToRemote: {
				"first_name": {Field: "NAME", Container: ContainerScalar},
				"last_name":  {Field: "LAST_NAME", Container: ContainerScalar},
				"email":      {Field: "EMAIL", Container: ContainerMultiValue, Role: DefaultContactRole, Normalize: NormalizeEmail},
				"phone":      {Field: "PHONE", Container: ContainerMultiValue, Role: DefaultContactRole, Normalize: NormalizePhone},
				"company":    {Field: "COMPANY_TITLE", Container: ContainerScalar},
				"address_1":  {Field: "ADDRESS", Container: ContainerScalar},
				"city":       {Field: "ADDRESS_CITY", Container: ContainerScalar},
				"country":    {Field: "ADDRESS_COUNTRY", Container: ContainerScalar, Normalize: NormalizeCountry},
			},
			FromRemote: {
				"NAME":          {Field: "first_name", Container: ContainerScalar},
				"LAST_NAME":     {Field: "last_name", Container: ContainerScalar},
				"EMAIL":         {Field: "email", Container: ContainerMultiValue, Normalize: NormalizeEmail},
				"PHONE":         {Field: "phone", Container: ContainerMultiValue, Normalize: NormalizePhone},
				"COMPANY_TITLE": {Field: "company", Container: ContainerScalar},
				"ADDRESS":       {Field: "address_1", Container: ContainerScalar},
				"ADDRESS_CITY":  {Field: "city", Container: ContainerScalar},
			},
		},
		EntityLead: {
			ToRemote: {
				"name":       {Field: "NAME", Container: ContainerScalar},
				"first_name": {Field: "NAME", Container: ContainerScalar},
				"last_name":  {Field: "LAST_NAME", Container: ContainerScalar},
				"email":      {Field: "EMAIL", Container: ContainerMultiValue, Role: DefaultContactRole, Normalize: NormalizeEmail},
				"phone":      {Field: "PHONE", Container: ContainerMultiValue, Role: DefaultContactRole, Normalize: NormalizePhone},
				"company":    {Field: "COMPANY_TITLE", Container: ContainerScalar},
				"message":    {Field: "COMMENTS", Container: ContainerScalar},
				"subject":    {Field: "COMMENTS", Container: ContainerScalar},
			},
			FromRemote: {
				"NAME":          {Field: "first_name", Container: ContainerScalar},
				"LAST_NAME":     {Field: "last_name", Container: ContainerScalar},
				"EMAIL":         {Field: "email", Container: ContainerMultiValue, Normalize: NormalizeEmail},
				"PHONE":         {Field: "phone", Container: ContainerMultiValue, Normalize: NormalizePhone},
				"COMPANY_TITLE": {Field: "company", Container: ContainerScalar},
				"COMMENTS":      {Field: "message", Container: ContainerScalar},
			},
		},
	}
}

// DefaultFallbacks fills destination fields still empty after mapping
// and calculated-field rules
func DefaultFallbacks() map[EntityKind]Record {
	return map[EntityKind]Record{
		EntityDeal: {
			"OPENED":         "Y",
			"TYPE_ID":        "SALE",
			"SOURCE_ID":      "WEBFORM",
			"ASSIGNED_BY_ID": 1,
		},
		EntityContact: {
			"OPENED":    "Y",
			"SOURCE_ID": "WEBFORM",
		},
		EntityLead: {
			"OPENED":    "Y",
			"SOURCE_ID": "WEBFORM",
			"STATUS_ID": "NEW",
		},
	}
}
