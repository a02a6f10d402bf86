package legrand

// successPage is shown in the user's browser after the authorization callback
// was accepted. The page body has no protocol meaning; the handshake outcome
// travels through the result channel.
const successPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Authorized - Smarther</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #38b2ac 0%, #2c7a7b 100%);
            padding: 1rem;
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 10px 25px rgba(0,0,0,0.1);
            max-width: 440px;
            width: 100%;
        }
        .icon {
            font-size: 3rem;
            margin-bottom: 1rem;
        }
        h1 {
            color: #1a202c;
            font-size: 1.4rem;
            margin: 0 0 0.5rem;
        }
        p {
            color: #4a5568;
            margin: 0;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="icon">&#10003;</div>
        <h1>Authorized! You can close this window now.</h1>
        <p>Your thermostat client is connected to the Legrand cloud.</p>
    </div>
</body>
</html>`

// failurePage is shown when the callback was rejected, either because no
// authorization code was present or the state did not match the issued nonce.
const failurePage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Authorization Failed - Smarther</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #e53e3e 0%, #9b2c2c 100%);
            padding: 1rem;
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 10px 25px rgba(0,0,0,0.1);
            max-width: 440px;
            width: 100%;
        }
        .icon {
            font-size: 3rem;
            margin-bottom: 1rem;
        }
        h1 {
            color: #1a202c;
            font-size: 1.4rem;
            margin: 0 0 0.5rem;
        }
        p {
            color: #4a5568;
            margin: 0;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="icon">&#10007;</div>
        <h1>Error during authorization</h1>
        <p>The authorization attempt was rejected. Close this window and try again.</p>
    </div>
</body>
</html>`

// alreadyCompletedPage is shown when a callback arrives after the attempt has
// already resolved. The recorded outcome is never altered by a repeat hit.
const alreadyCompletedPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Already Completed - Smarther</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #718096 0%, #2d3748 100%);
            padding: 1rem;
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 10px 25px rgba(0,0,0,0.1);
            max-width: 440px;
            width: 100%;
        }
        h1 {
            color: #1a202c;
            font-size: 1.4rem;
            margin: 0 0 0.5rem;
        }
        p {
            color: #4a5568;
            margin: 0;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>This authorization attempt has already completed</h1>
        <p>You can close this window.</p>
    </div>
</body>
</html>`
