// Package fixtures provides HTML and ads.txt test fixtures.
package fixtures

// PublisherID is the identifier embedded in the fixtures.
const PublisherID = "ca-pub-1234567890123456"

// SecondPublisherID is a second identifier used by multi-publisher pages.
const SecondPublisherID = "ca-pub-6543210987654321"

// GenerateAdSensePage creates a typical page with the async loader and an ins slot.
func GenerateAdSensePage() string {
	return `
<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>  Example   Recipes </title>
<meta name="description" content="Tasty recipes every day">
<script async src="https://pagead2.googlesyndication.com/pagead/js/adsbygoogle.js?client=ca-pub-1234567890123456" crossorigin="anonymous"></script>
</head>
<body>
<ins class="adsbygoogle" style="display:block" data-ad-client="ca-pub-1234567890123456" data-ad-slot="1111111111"></ins>
<script>(adsbygoogle = window.adsbygoogle || []).push({});</script>
</body>
</html>
`
}

// GenerateScriptOnlyPage creates a page whose only identifier sits inside a script body.
func GenerateScriptOnlyPage() string {
	return `<html><head><script>ca-pub-1234567890123456</script></head><body></body></html>`
}

// GenerateMultiPublisherPage creates a page with two identifiers in different places.
func GenerateMultiPublisherPage() string {
	return `
<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta http-equiv="Content-Type" content="text/html; charset=ISO-8859-1">
<title>Portal</title>
<script>
window.adConfig = {"client": "ca-pub-6543210987654321", "format": "auto"};
</script>
</head>
<body>
<div data-publisher-id="1234567890123456"></div>
<iframe src="https://googleads.g.doubleclick.net/pagead/ads?client=ca-pub-6543210987654321&format=300x250"></iframe>
</body>
</html>
`
}

// GenerateTagManagerPage creates a page that loads the identifier through tag snippets.
func GenerateTagManagerPage() string {
	return `
<html><head>
<script>
  window.dataLayer = window.dataLayer || [];
  dataLayer.push({'event': 'ads', 'publisher': 'ca-pub-1234567890123456'});
  gtag('config', 'ca-pub-6543210987654321');
</script>
</head><body></body></html>
`
}

// GenerateMalformedPage creates a page with near-miss identifiers only.
func GenerateMalformedPage() string {
	return `
<html><body>
<p>ca-pub-123456789012345</p>
<p>ca-pub-12345678901234567</p>
<div data-ad-client="12345"></div>
<script>var google_ad_client = "ca-pub-abcdefabcdefabcd";</script>
</body></html>
`
}

// GenerateNoAdsPage creates a page without any identifiers.
func GenerateNoAdsPage() string {
	return `<!DOCTYPE html><html><head><title>Plain</title></head><body><p>Nothing to see.</p></body></html>`
}

// GenerateAdsTxt creates a realistic ads.txt with comments, variables and malformed lines.
func GenerateAdsTxt() string {
	return `# ads.txt for example.com
contact=ads@example.com
subdomain=blog.example.com

google.com, pub-1234567890123456, DIRECT, f08c47fec0942fa0 # primary account
google.com, pub-9999999999999999, RESELLER, f08c47fec0942fa0
appnexus.com, 1234, RESELLER
this line is broken
google.com, pub-1111111111111111, PARTNER
, pub-2222222222222222, DIRECT
`
}

// GenerateResellerAdsTxt creates an ads.txt where the publisher is only a reseller.
func GenerateResellerAdsTxt() string {
	return "GOOGLE.COM, PUB-1234567890123456, reseller, f08c47fec0942fa0\n"
}
