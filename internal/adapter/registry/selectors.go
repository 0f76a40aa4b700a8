package registry

// Selectors for the e-gazette announcement search form. The portal is an
// ASP.NET WebForms page whose control ids have shifted between releases, so
// each control has fallbacks tried in order.
var (
	typeFilterSelectors = []string{
		"#ctl00_C_ANNOUNCEMENT_TYPE_IDFilterFld",
		`select[name$="ANNOUNCEMENT_TYPE_IDFilterFld"]`,
		`select[id*="ANNOUNCEMENT_TYPE"]`,
	}
	entityCodeSelectors = []string{
		"#ctl00_C_ENT_GDT_CODEFld",
		`input[name$="ENT_GDT_CODEFld"]`,
		`input[id*="ENT_GDT_CODE"]`,
	}
	submitSelectors = []string{
		"#ctl00_C_BtnFilter",
		`input[id$="BtnFilter"]`,
	}
)

const (
	resultsTableSelector = "#ctl00_C_CtlList"
	pdfButtonSelector    = `input[id^="ctl00_C_CtlList_"][id$="_LnkGetPDFActive"]`
	noDataText           = "Không tìm thấy dữ liệu"
)

// injectTokenScript writes a solved token where the reCAPTCHA widget would.
const injectTokenScript = `(function(token) {
	let el = document.getElementById("g-recaptcha-response");
	if (!el) {
		el = document.createElement("textarea");
		el.id = "g-recaptcha-response";
		el.name = "g-recaptcha-response";
		el.style.display = "none";
		document.body.appendChild(el);
	}
	el.value = token;
	document.querySelectorAll(".g-recaptcha-response").forEach(function(e) { e.value = token; });
	return el.value === token;
})(%s)`
